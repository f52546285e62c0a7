package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_registration_create = "registration.create"
	report_registration_update = "registration.update"
	report_registration_upload = "registration.upload"
)

const (
	UploadFieldName   = "widget"
	UploadFileName    = "widget.zip"
	UploadContentType = "application/x-zip-compressed"
)

// LocalizedText carries one string for each locale the vendor accepts.
type LocalizedText struct {
	En string `json:"en"`
	Es string `json:"es"`
	Pt string `json:"pt"`
	Ru string `json:"ru"`
}

// Registration is the vendor-side record of a widget integration, it is sent
// as-is to create or update the record. Uuid is null when creating.
type Registration struct {
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	RedirectUri string        `json:"redirect_uri"`
	Scopes      []string      `json:"scopes"`
	Uuid        *string       `json:"uuid"`
}

type registrationResponse struct {
	Uuid string `json:"uuid"`
}

func (s *Session) saveRegistration(ctx context.Context, reportId, method, endpoint string, reg Registration) (string, error) {
	err := s.requireAuthenticated()
	if err != nil {
		return "", err
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetBody(reg).
		Execute(method, endpoint)
	if err != nil {
		s.tel.ReportBroken(reportId, fmt.Errorf("fetch: %w", err))
		return "", fmt.Errorf("amocrm: %s %s: %w", method, endpoint, err)
	}
	err = checkResponse(res)
	if err != nil {
		s.tel.ReportBroken(reportId, err)
		return "", err
	}

	var parsed registrationResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		s.tel.ReportBroken(reportId, fmt.Errorf("unmarshal json: %w", err))
		return "", fmt.Errorf("amocrm: decode registration: %w", err)
	}
	return parsed.Uuid, nil
}

// CreateRegistration creates a new widget registration and returns the uuid the
// vendor assigned to it.
func (s *Session) CreateRegistration(ctx context.Context, reg Registration) (string, error) {
	return s.saveRegistration(ctx, report_registration_create, resty.MethodPost, "/v3/clients/", reg)
}

// UpdateRegistration overwrites the registration identified by uuid and returns
// the uuid echoed back by the vendor.
func (s *Session) UpdateRegistration(ctx context.Context, uuid string, reg Registration) (string, error) {
	if uuid == "" {
		return "", fmt.Errorf("%w: uuid is required", ErrInvalidArgument)
	}
	endpoint := fmt.Sprintf("/v3/clients/%s", url.PathEscape(uuid))
	return s.saveRegistration(ctx, report_registration_update, resty.MethodPatch, endpoint, reg)
}

// UploadEndpoint returns the upload path for a registration, `at` is used as a
// cache buster in the form the browser sends it (`?fileapi<unix millis>`).
func UploadEndpoint(uuid string, at time.Time) string {
	return fmt.Sprintf(
		"/ajax/widgets/%s/widget/upload/?fileapi%d",
		url.PathEscape(uuid),
		at.UnixMilli(),
	)
}

// UploadArchive submits the packaged widget to the registration identified by uuid.
func (s *Session) UploadArchive(ctx context.Context, uuid string, archive []byte, at time.Time) error {
	err := s.requireAuthenticated()
	if err != nil {
		return err
	}
	if uuid == "" {
		return fmt.Errorf("%w: uuid is required", ErrInvalidArgument)
	}

	endpoint := UploadEndpoint(uuid, at)
	res, err := s.Http.R().
		SetContext(ctx).
		SetMultipartField(UploadFieldName, UploadFileName, UploadContentType, bytes.NewReader(archive)).
		SetMultipartFormData(map[string]string{
			"_" + UploadFieldName: UploadFileName,
		}).
		Post(endpoint)
	if err != nil {
		s.tel.ReportBroken(report_registration_upload, fmt.Errorf("fetch: %w", err), uuid)
		return fmt.Errorf("amocrm: upload widget: %w", err)
	}
	err = checkResponse(res)
	if err != nil {
		s.tel.ReportBroken(report_registration_upload, err, uuid)
		return err
	}

	s.tel.ReportDebug("uploaded widget archive", uuid, len(archive))
	return nil
}
