package amocrm

import (
	"context"
	"errors"
	"testing"

	"amowidget/internal/amocrm/amocrmtest"
	"amowidget/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, server *amocrmtest.Server) (*Session, *telemetry.Recorder) {
	t.Helper()
	rec := &telemetry.Recorder{}
	session, err := NewSession(server.BaseUrl(), rec)
	require.NoError(t, err)
	return session, rec
}

func newAuthenticatedSession(t *testing.T, server *amocrmtest.Server) (*Session, *telemetry.Recorder) {
	t.Helper()
	session, rec := newTestSession(t, server)
	err := session.Authenticate(context.Background(), Credentials{
		Login:    server.Login,
		Password: server.Password,
	})
	require.NoError(t, err)
	return session, rec
}

func TestAuthenticate(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, _ := newTestSession(t, server)
	require.Equal(t, StateAnonymous, session.State())

	err := session.Authenticate(context.Background(), Credentials{
		Login:    server.Login,
		Password: server.Password,
	})
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, session.State())

	logins := server.Logins()
	require.Len(t, logins, 1)
	require.Equal(t, amocrmtest.CsrfToken, logins[0].CsrfToken)
	require.Equal(t, server.Login, logins[0].Username)
	require.Equal(t, server.Password, logins[0].Password)
	require.Equal(t, "N", logins[0].TemporaryAuth)
	require.Equal(t, server.BaseUrl(), logins[0].Referer)
	require.Equal(t, UserAgent, logins[0].UserAgent)

	require.Equal(t, []string{
		"GET /",
		"POST /oauth2/authorize",
	}, server.Requests())

	// the session cookie is carried by the jar from now on
	_, err = session.getJSON(context.Background(), "test", ownIntegrationsPage(1))
	require.NoError(t, err)

	// authenticating twice is a no-op
	err = session.Authenticate(context.Background(), Credentials{})
	require.NoError(t, err)
	require.Len(t, server.Logins(), 1)
}

func TestAuthenticateMissingCsrf(t *testing.T) {
	server := amocrmtest.NewServer(t)
	server.OmitCsrf = true
	session, rec := newTestSession(t, server)

	err := session.Authenticate(context.Background(), Credentials{
		Login:    server.Login,
		Password: server.Password,
	})
	require.ErrorIs(t, err, ErrCsrfNotFound)
	require.Equal(t, StateAnonymous, session.State())
	require.Empty(t, server.Logins())
	require.Equal(t, []string{"GET /"}, server.Requests())
	require.Len(t, rec.Find("broken", report_session_acquire_csrf), 1)
}

func TestAuthenticateRejected(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, _ := newTestSession(t, server)

	err := session.Authenticate(context.Background(), Credentials{
		Login:    server.Login,
		Password: "wrong",
	})

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, 401, authErr.StatusCode)
	require.Equal(t, StateAnonymous, session.State())
	require.Len(t, server.Logins(), 1)

	err = session.UploadArchive(context.Background(), "uuid", nil, fixedTime)
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticateNetworkFailure(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, rec := newTestSession(t, server)
	server.Close()

	err := session.Authenticate(context.Background(), Credentials{
		Login:    server.Login,
		Password: server.Password,
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCsrfNotFound)

	var authErr *AuthenticationError
	require.False(t, errors.As(err, &authErr))
	require.NotEmpty(t, rec.Find("broken", report_session_acquire_csrf))
}

func TestNewSessionInvalidBaseUrl(t *testing.T) {
	for _, baseUrl := range []string{"", "example.amocrm.ru", "://bad"} {
		_, err := NewSession(baseUrl, telemetry.SlogAPI{})
		require.Error(t, err, baseUrl)
	}
}

func TestBaseUrlForSubdomain(t *testing.T) {
	require.Equal(t, "https://example.amocrm.ru/", BaseUrlForSubdomain("example"))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "anonymous", StateAnonymous.String())
	require.Equal(t, "csrf-acquired", StateCsrfAcquired.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "state(7)", State(7).String())
}
