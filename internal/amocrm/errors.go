package amocrm

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCsrfNotFound      = errors.New("csrf token not found on login page")
	ErrNotAuthenticated  = errors.New("session is not authenticated")
	ErrUnexpectedListing = errors.New("unexpected integrations listing")
)

const maxErrorBody = 256

func truncate(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

// AuthenticationError is returned when the vendor rejects the login request.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("amocrm: login rejected with status %d: %s", e.StatusCode, e.Body)
}

// StatusError is returned when any other vendor endpoint responds with a non-2xx status.
type StatusError struct {
	Method     string
	Url        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("amocrm: %s %s: status %d: %s", e.Method, e.Url, e.StatusCode, e.Body)
}

func checkResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &StatusError{
		Method:     res.Request.Method,
		Url:        res.Request.URL,
		StatusCode: res.StatusCode(),
		Body:       truncate(res.String()),
	}
}
