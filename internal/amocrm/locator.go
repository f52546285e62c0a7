package amocrm

import (
	"context"
	"fmt"

	"amowidget/lib/textutil"

	"github.com/tidwall/gjson"
)

const (
	report_locator_find = "locator.find"
	report_locator_list = "locator.list"
)

const (
	widgetType = "widget"

	// names at least this similar to the target are reported as a likely typo
	nearMissSimilarity = 0.9
)

// WidgetRecord is one entry of the own integrations listing.
type WidgetRecord struct {
	Code string
	Name string
	Type string
	Uuid string
}

func (r WidgetRecord) matches(name string) bool {
	return r.Type == widgetType && r.Name == name
}

// WidgetLocator finds the registration of a widget by its display name.
type WidgetLocator interface {
	// FindExistingUuid returns the uuid of the first widget registration whose name
	// is exactly `name`, in the order the vendor lists them. The boolean is false
	// if there is none, which means the widget should be created.
	FindExistingUuid(ctx context.Context, name string) (string, bool, error)

	// List returns every integration the account owns, in listing order.
	List(ctx context.Context) ([]WidgetRecord, error)
}

// NewLocator picks the listing protocol, the paginated marketplace listing or the
// legacy single page listing.
func NewLocator(session *Session, marketplace bool) WidgetLocator {
	if marketplace {
		return NewMarketplaceLocator(session)
	}
	return NewLegacyLocator(session)
}

const ownIntegrationsEndpoint = "/ajax/settings/widgets/category/own_integrations/%d/"

func ownIntegrationsPage(page int) string {
	return fmt.Sprintf(ownIntegrationsEndpoint, page)
}

// getJSON fetches an endpoint and returns its body, which must be valid json.
func (s *Session) getJSON(ctx context.Context, reportId, endpoint string) (string, error) {
	err := s.requireAuthenticated()
	if err != nil {
		return "", err
	}

	res, err := s.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		s.tel.ReportBroken(reportId, fmt.Errorf("fetch: %w", err), endpoint)
		return "", fmt.Errorf("amocrm: GET %s: %w", endpoint, err)
	}
	err = checkResponse(res)
	if err != nil {
		s.tel.ReportBroken(reportId, err)
		return "", err
	}

	body := res.String()
	if !gjson.Valid(body) {
		err := fmt.Errorf("amocrm: GET %s: response is not json", endpoint)
		s.tel.ReportBroken(reportId, err)
		return "", err
	}
	return body, nil
}

// ownIntegrations fetches a listing page and returns its integrations mapping. A
// page without one is an error, never an empty listing.
func (s *Session) ownIntegrations(ctx context.Context, reportId string, page int) (gjson.Result, error) {
	endpoint := ownIntegrationsPage(page)
	body, err := s.getJSON(ctx, reportId, endpoint)
	if err != nil {
		return gjson.Result{}, err
	}

	mapping := gjson.Get(body, "widgets.own_integrations")
	if !mapping.IsObject() && !mapping.IsArray() {
		err := fmt.Errorf("%w: GET %s lacks widgets.own_integrations: %s", ErrUnexpectedListing, endpoint, truncate(body))
		s.tel.ReportBroken(reportId, err)
		return gjson.Result{}, err
	}
	return mapping, nil
}

func parseRecord(code string, value gjson.Result) WidgetRecord {
	record := WidgetRecord{
		Code: value.Get("code").String(),
		Name: value.Get("name").String(),
		Type: value.Get("type").String(),
		Uuid: value.Get("client.uuid").String(),
	}
	if record.Code == "" {
		record.Code = code
	}
	if record.Uuid == "" {
		record.Uuid = value.Get("uuid").String()
	}
	return record
}

// eachRecord calls fn with every record of a code -> record mapping in document
// order. The vendor serializes an empty mapping as `[]`, arrays are walked too.
// Iteration stops when fn returns false.
func eachRecord(mapping gjson.Result, fn func(WidgetRecord) bool) {
	mapping.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		return fn(parseRecord(key.String(), value))
	})
}

// nearMiss remembers the widget name most similar to a target that did not match.
type nearMiss struct {
	target     string
	best       string
	similarity float64
}

func (n *nearMiss) observe(record WidgetRecord) {
	if record.Type != widgetType || record.Name == n.target {
		return
	}
	similarity := textutil.Similarity(n.target, record.Name)
	if similarity > n.similarity {
		n.similarity = similarity
		n.best = record.Name
	}
}

func (n nearMiss) report(s *Session) {
	if n.similarity < nearMissSimilarity {
		return
	}
	s.tel.ReportWarning(
		report_locator_find,
		fmt.Sprintf("no widget named %q, but found similarly named %q", n.target, n.best),
		n.similarity,
	)
}

func requireName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: widget name is required", ErrInvalidArgument)
	}
	return nil
}

// walkFunc calls fn with every record of a listing until fn returns false.
type walkFunc func(ctx context.Context, reportId string, fn func(WidgetRecord) bool) error

func find(ctx context.Context, s *Session, walk walkFunc, name string) (string, bool, error) {
	err := requireName(name)
	if err != nil {
		return "", false, err
	}

	miss := nearMiss{target: name}
	var found *WidgetRecord
	err = walk(ctx, report_locator_find, func(record WidgetRecord) bool {
		if record.matches(name) {
			found = &record
			return false
		}
		miss.observe(record)
		return true
	})
	if err != nil {
		return "", false, err
	}

	if found == nil {
		miss.report(s)
		return "", false, nil
	}
	s.tel.ReportDebug("found existing widget", found.Code, found.Uuid)
	return found.Uuid, true, nil
}

func list(ctx context.Context, walk walkFunc) ([]WidgetRecord, error) {
	var records []WidgetRecord
	err := walk(ctx, report_locator_list, func(record WidgetRecord) bool {
		records = append(records, record)
		return true
	})
	return records, err
}
