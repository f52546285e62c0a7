package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics, components depend on it instead of
// calling slog directly so tests can observe what a component reported.
type API interface {
	// ReportBroken reports a component that failed in a way that aborts the operation.
	//
	// The `id` names the component and method that broke in the form `<struct>.<method>`,
	// all lowercase, dashes between words (ex. `session.acquire-csrf`). It should not carry
	// the nature of the failure, wrap the error passed as a param with fmt.Errorf for that.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is suspicious but does not abort anything.
	//
	// Ids follow the same rules as ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only useful when debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the count of an event at the current time.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id and message with a namespace before forwarding
// it to the inner API.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
