// Package installer publishes a packaged widget to an amoCRM account: it logs in,
// looks for an existing registration with the widget's name, creates or updates
// it and uploads the archive.
//
// A failure after the registration was created leaves it on the vendor side,
// nothing is rolled back. The error names the created uuid.
package installer

import (
	"context"
	"errors"
	"fmt"

	"amowidget/internal/amocrm"
	"amowidget/internal/archive"
	"amowidget/internal/components/assert"
	"amowidget/internal/components/chrono"
	"amowidget/internal/components/telemetry"
	"amowidget/internal/manifest"
	"amowidget/lib/restyutil"

	"github.com/google/uuid"
)

const (
	report_installer_upload       = "installer.upload"
	report_installer_registration = "installer.registration"
)

const (
	DefaultRedirectUri = "https://amocrm.ru/"
	DefaultLocale      = "ru"

	NameKey        = "widget.name"
	DescriptionKey = "widget.description"
)

var ErrInvalidRegistration = errors.New("invalid registration response")

func Scopes() []string {
	return []string{"crm", "notifications"}
}

// Locales are the locales the vendor accepts a name and description in.
func Locales() []string {
	return []string{"en", "es", "pt", "ru"}
}

type Options struct {
	BaseUrl     string
	Credentials amocrm.Credentials
	ArchivePath string
	// RedirectUri defaults to DefaultRedirectUri.
	RedirectUri string
	// DefaultLocale is the locale manifest.json is written in, defaults to DefaultLocale.
	DefaultLocale string
	// Marketplace selects the paginated listing instead of the legacy one.
	Marketplace bool
	// Dump, if set, receives every http exchange of the session.
	Dump restyutil.Output
}

type Result struct {
	Uuid    string
	Created bool
}

type Installer struct {
	redirectUri string
	credentials amocrm.Credentials

	session  *amocrm.Session
	archive  *archive.Archive
	resolver *manifest.Resolver
	locator  amocrm.WidgetLocator
	time     chrono.API
	tel      telemetry.API
}

// New opens the archive and prepares a fresh session, nothing is sent until Upload.
func New(opts Options, tel telemetry.API, clock chrono.API) (*Installer, error) {
	assert.NotNil(tel)
	assert.NotNil(clock)

	if opts.RedirectUri == "" {
		opts.RedirectUri = DefaultRedirectUri
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = DefaultLocale
	}

	pkg, err := archive.Open(opts.ArchivePath)
	if err != nil {
		return nil, err
	}
	session, err := amocrm.NewSession(opts.BaseUrl, tel)
	if err != nil {
		return nil, err
	}
	restyutil.Dump(session.Http, opts.Dump)

	return &Installer{
		redirectUri: opts.RedirectUri,
		credentials: opts.Credentials,
		session:     session,
		archive:     pkg,
		resolver:    manifest.NewResolver(pkg, opts.DefaultLocale, tel),
		locator:     amocrm.NewLocator(session, opts.Marketplace),
		time:        clock,
		tel:         telemetry.NewScopedAPI("installer", tel),
	}, nil
}

func (i *Installer) Resolver() *manifest.Resolver {
	return i.resolver
}

// WidgetName returns the display name in the default locale, it is what
// registrations are matched by.
func (i *Installer) WidgetName() (string, error) {
	name, _, err := i.resolver.Localized(NameKey, "")
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: %s is empty in the %s manifest", amocrm.ErrInvalidArgument, NameKey, i.resolver.DefaultLocale())
	}
	return name, nil
}

func (i *Installer) localized(key string) (amocrm.LocalizedText, error) {
	var text amocrm.LocalizedText
	targets := map[string]*string{
		"en": &text.En,
		"es": &text.Es,
		"pt": &text.Pt,
		"ru": &text.Ru,
	}
	for _, locale := range Locales() {
		value, err := i.resolver.LocalizedOrEmpty(key, locale)
		if err != nil {
			return amocrm.LocalizedText{}, err
		}
		*targets[locale] = value
	}
	return text, nil
}

// Registration builds the payload sent to the vendor, existingUuid is nil when
// the registration is about to be created.
func (i *Installer) Registration(existingUuid *string) (amocrm.Registration, error) {
	name, err := i.localized(NameKey)
	if err != nil {
		return amocrm.Registration{}, err
	}
	description, err := i.localized(DescriptionKey)
	if err != nil {
		return amocrm.Registration{}, err
	}

	return amocrm.Registration{
		Name:        name,
		Description: description,
		RedirectUri: i.redirectUri,
		Scopes:      Scopes(),
		Uuid:        existingUuid,
	}, nil
}

func (i *Installer) validateUuid(id string) error {
	_, err := uuid.Parse(id)
	if err != nil {
		err = fmt.Errorf("%w: uuid %q: %s", ErrInvalidRegistration, id, err.Error())
		i.tel.ReportBroken(report_installer_registration, err)
		return err
	}
	return nil
}

// saveRegistration creates or updates the registration and returns the uuid the
// vendor answered with.
func (i *Installer) saveRegistration(ctx context.Context, existingUuid string, found bool) (string, error) {
	var existing *string
	if found {
		existing = &existingUuid
	}
	reg, err := i.Registration(existing)
	if err != nil {
		return "", err
	}

	if !found {
		created, err := i.session.CreateRegistration(ctx, reg)
		if err != nil {
			return "", err
		}
		err = i.validateUuid(created)
		if err != nil {
			return "", fmt.Errorf("registration %q was created but cannot be uploaded to: %w", created, err)
		}
		return created, nil
	}

	updated, err := i.session.UpdateRegistration(ctx, existingUuid, reg)
	if err != nil {
		return "", err
	}
	err = i.validateUuid(updated)
	if err != nil {
		return "", err
	}
	if updated != existingUuid {
		i.tel.ReportWarning(
			report_installer_registration,
			fmt.Errorf("update of %s answered with uuid %s", existingUuid, updated),
		)
	}
	return updated, nil
}

// Upload runs the whole publishing sequence, every step depends on the previous
// one and the first failure aborts the run.
func (i *Installer) Upload(ctx context.Context) (Result, error) {
	err := i.session.Authenticate(ctx, i.credentials)
	if err != nil {
		return Result{}, err
	}

	name, err := i.WidgetName()
	if err != nil {
		i.tel.ReportBroken(report_installer_upload, err)
		return Result{}, err
	}

	existing, found, err := i.locator.FindExistingUuid(ctx, name)
	if err != nil {
		return Result{}, err
	}
	i.tel.ReportDebug("located widget", name, existing, found)

	id, err := i.saveRegistration(ctx, existing, found)
	if err != nil {
		return Result{}, err
	}

	err = i.session.UploadArchive(ctx, id, i.archive.Bytes(), i.time.Now())
	if err != nil {
		if !found {
			return Result{}, fmt.Errorf("registration %s was created but the upload failed: %w", id, err)
		}
		return Result{}, err
	}

	return Result{Uuid: id, Created: !found}, nil
}
