package amocrm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"amowidget/internal/amocrm/amocrmtest"

	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testRegistration(name string, uuid *string) Registration {
	return Registration{
		Name:        LocalizedText{En: name, Es: name, Pt: name, Ru: name},
		Description: LocalizedText{En: "desc", Es: "desc", Pt: "desc", Ru: "desc"},
		RedirectUri: "https://example.com/amocrm/auth",
		Scopes:      []string{"crm", "notifications"},
		Uuid:        uuid,
	}
}

func TestCreateAndUpdateRegistration(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, _ := newAuthenticatedSession(t, server)
	ctx := context.Background()

	uuid, err := session.CreateRegistration(ctx, testRegistration("My widget", nil))
	require.NoError(t, err)
	require.NotEmpty(t, uuid)

	created := server.Registration(uuid)
	require.Contains(t, created, "uuid")
	require.Nil(t, created["uuid"])
	require.Equal(t, "https://example.com/amocrm/auth", created["redirect_uri"])
	require.Equal(t, []any{"crm", "notifications"}, created["scopes"])

	updated, err := session.UpdateRegistration(ctx, uuid, testRegistration("My widget 2", &uuid))
	require.NoError(t, err)
	require.Equal(t, uuid, updated)
	require.Equal(t, uuid, server.Registration(uuid)["uuid"])

	require.Contains(t, server.Requests(), "POST /v3/clients/")
	require.Contains(t, server.Requests(), fmt.Sprintf("PATCH /v3/clients/%s", uuid))
}

func TestUpdateUnknownRegistration(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, _ := newAuthenticatedSession(t, server)

	missing := "00000000-0000-0000-0000-000000000000"
	_, err := session.UpdateRegistration(context.Background(), missing, testRegistration("x", &missing))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 404, statusErr.StatusCode)
	require.Equal(t, "PATCH", statusErr.Method)

	_, err = session.UpdateRegistration(context.Background(), "", testRegistration("x", nil))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUploadArchive(t *testing.T) {
	server := amocrmtest.NewServer(t)
	session, _ := newAuthenticatedSession(t, server)

	archive := []byte("PK\x03\x04 not really a zip")
	err := session.UploadArchive(context.Background(), "some-uuid", archive, fixedTime)
	require.NoError(t, err)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)
	require.Equal(t, amocrmtest.Upload{
		Uuid:        "some-uuid",
		RawQuery:    fmt.Sprintf("fileapi%d", fixedTime.UnixMilli()),
		FileName:    "widget.zip",
		ContentType: "application/x-zip-compressed",
		FormValue:   "widget.zip",
		Data:        archive,
	}, uploads[0])
}

func TestUploadArchiveRejected(t *testing.T) {
	server := amocrmtest.NewServer(t)
	server.UploadStatus = 500
	session, rec := newAuthenticatedSession(t, server)

	err := session.UploadArchive(context.Background(), "some-uuid", []byte("zip"), fixedTime)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 500, statusErr.StatusCode)
	require.Len(t, rec.Find("broken", report_registration_upload), 1)
}

func TestUploadEndpoint(t *testing.T) {
	require.Equal(
		t,
		"/ajax/widgets/abc/widget/upload/?fileapi1709294400000",
		UploadEndpoint("abc", fixedTime),
	)
}

func TestTruncate(t *testing.T) {
	short := "short body"
	require.Equal(t, short, truncate(short))

	long := ""
	for len(long) < 300 {
		long += "я"
	}
	truncated := truncate(long)
	require.LessOrEqual(t, len(truncated), maxErrorBody+len("..."))
	require.Equal(t, "...", truncated[len(truncated)-3:])
}
