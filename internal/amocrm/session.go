// Package amocrm talks to the undocumented web-settings endpoints of an amoCRM
// account the same way the browser does, authenticated as a human user.
package amocrm

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"

	"amowidget/internal/components/assert"
	"amowidget/internal/components/telemetry"
	"amowidget/lib/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_session_acquire_csrf = "session.acquire-csrf"
	report_session_login        = "session.login"
)

const (
	UserAgent     = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:51.0) Gecko/20100101 Firefox/51.0"
	csrfInputName = "csrf_token"
)

// State is the authentication state of a Session.
type State int

const (
	StateAnonymous State = iota
	StateCsrfAcquired
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateCsrfAcquired:
		return "csrf-acquired"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Credentials struct {
	Login    string
	Password string
}

// Session holds the cookie jar and transport defaults shared by every call made
// on behalf of one user. Authentication state lives entirely in the cookie jar.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client

	state     State
	csrfToken string
	tel       telemetry.API
}

// BaseUrlForSubdomain returns the web frontend of an account, ex. `https://example.amocrm.ru/`.
func BaseUrlForSubdomain(subdomain string) string {
	return fmt.Sprintf("https://%s.amocrm.ru/", subdomain)
}

func NewSession(baseUrl string, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("amocrm", tel)

	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidArgument, baseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))

	s := &Session{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
	}
	httpClient.SetHeaders(map[string]string{
		"User-Agent":       UserAgent,
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          s.url("/settings/widgets/"),
	})

	telemetry.InstrumentResty(httpClient, tel)

	return s, nil
}

// url resolves an absolute path against the base url.
func (s *Session) url(path string) string {
	return s.BaseUrl.ResolveReference(&url.URL{Path: path}).String()
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) requireAuthenticated() error {
	if s.state != StateAuthenticated {
		return fmt.Errorf("%w: state is %s", ErrNotAuthenticated, s.state)
	}
	return nil
}

// Authenticate drives the session from its current state to StateAuthenticated.
// It does nothing if the session is already authenticated.
func (s *Session) Authenticate(ctx context.Context, creds Credentials) error {
	for s.state != StateAuthenticated {
		err := s.advance(ctx, creds)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) advance(ctx context.Context, creds Credentials) error {
	switch s.state {
	case StateAnonymous:
		token, err := s.acquireCsrf(ctx)
		if err != nil {
			return err
		}
		s.csrfToken = token
		s.state = StateCsrfAcquired
	case StateCsrfAcquired:
		err := s.login(ctx, creds)
		if err != nil {
			// a csrf token is single use, start over next time
			s.csrfToken = ""
			s.state = StateAnonymous
			return err
		}
		s.csrfToken = ""
		s.state = StateAuthenticated
	}
	return nil
}

// acquireCsrf requests the root page without being logged in, the vendor answers
// with an error status and the login form, which carries the csrf token.
func (s *Session) acquireCsrf(ctx context.Context) (string, error) {
	res, err := s.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		s.tel.ReportBroken(
			report_session_acquire_csrf,
			fmt.Errorf("not-logged-in page request: %w", err),
		)
		return "", fmt.Errorf("amocrm: request login page: %w", err)
	}

	doc, err := htmlutil.Parse(res.Body())
	if err != nil {
		s.tel.ReportBroken(
			report_session_acquire_csrf,
			fmt.Errorf("parse login page: %w", err),
		)
		return "", fmt.Errorf("amocrm: parse login page: %w", err)
	}

	token, ok := htmlutil.InputValue(doc, csrfInputName)
	if !ok {
		s.tel.ReportBroken(report_session_acquire_csrf, ErrCsrfNotFound, res.StatusCode())
		return "", fmt.Errorf("amocrm: %w (status %d)", ErrCsrfNotFound, res.StatusCode())
	}

	s.tel.ReportDebug("acquired csrf token", res.StatusCode())
	return token, nil
}

type loginRequest struct {
	CsrfToken     string `json:"csrf_token"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	TemporaryAuth string `json:"temporary_auth"`
}

func (s *Session) login(ctx context.Context, creds Credentials) error {
	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("Referer", s.url("/")).
		SetBody(loginRequest{
			CsrfToken:     s.csrfToken,
			Username:      creds.Login,
			Password:      creds.Password,
			TemporaryAuth: "N",
		}).
		Post("/oauth2/authorize")
	if err != nil {
		s.tel.ReportBroken(
			report_session_login,
			fmt.Errorf("login request: %w", err),
		)
		return fmt.Errorf("amocrm: login request: %w", err)
	}

	if !res.IsSuccess() {
		authErr := &AuthenticationError{
			StatusCode: res.StatusCode(),
			Body:       truncate(res.String()),
		}
		s.tel.ReportBroken(report_session_login, authErr)
		return authErr
	}

	s.tel.ReportDebug("logged in", creds.Login)
	return nil
}
