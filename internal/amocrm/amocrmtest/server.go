// Package amocrmtest provides an in-memory imitation of the amoCRM web-settings
// endpoints for tests.
package amocrmtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

const (
	CsrfToken     = "csrf-4f1c2a"
	sessionCookie = "session_id"
	sessionValue  = "authenticated"
)

// Record is an integration owned by the account.
type Record struct {
	Category string
	Code     string
	Name     string
	Type     string
	Uuid     string
}

type LoginAttempt struct {
	CsrfToken     string `json:"csrf_token"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	TemporaryAuth string `json:"temporary_auth"`
	Referer       string `json:"-"`
	UserAgent     string `json:"-"`
}

type Upload struct {
	Uuid        string
	RawQuery    string
	FileName    string
	ContentType string
	FormValue   string
	Data        []byte
}

// Server imitates one account. Fields must be set before the first request.
type Server struct {
	*httptest.Server

	Login    string
	Password string

	// OmitCsrf removes the csrf input from the login page.
	OmitCsrf bool
	// Marketplace serves the paginated listing instead of the legacy one.
	Marketplace bool
	PageSize    int
	// ListingLocale is the locale of the registration name shown in listings.
	ListingLocale string
	// UploadStatus, if set, is returned by the upload endpoint.
	UploadStatus int
	// ListingBody, if set, is served verbatim by the listing endpoint.
	ListingBody string
	// CreatedUuid, if set, replaces the generated uuid of created registrations.
	CreatedUuid string

	mutex         sync.Mutex
	records       []Record
	registrations map[string]map[string]any
	logins        []LoginAttempt
	requests      []string
	uploads       []Upload
	nextId        int
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		Login:         "admin@example.com",
		Password:      "secret",
		PageSize:      20,
		ListingLocale: "ru",
		registrations: map[string]map[string]any{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /oauth2/authorize", s.handleLogin)
	mux.HandleFunc("GET /ajax/settings/widgets/category/own_integrations/{page}/", s.authenticated(s.handleListing))
	mux.HandleFunc("POST /v3/clients/", s.authenticated(s.handleCreate))
	mux.HandleFunc("PATCH /v3/clients/{uuid}", s.authenticated(s.handleUpdate))
	mux.HandleFunc("POST /ajax/widgets/{uuid}/widget/upload/", s.authenticated(s.handleUpload))

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		entry := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}
		s.requests = append(s.requests, entry)
		s.mutex.Unlock()

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

// BaseUrl returns the server url with a trailing slash, the way account urls are written.
func (s *Server) BaseUrl() string {
	return s.Server.URL + "/"
}

func (s *Server) AddRecords(records ...Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records = append(s.records, records...)
}

func (s *Server) Records() []Record {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Record(nil), s.records...)
}

// Registration returns the last body created or patched for uuid.
func (s *Server) Registration(uuid string) map[string]any {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.registrations[uuid]
}

func (s *Server) Logins() []LoginAttempt {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]LoginAttempt(nil), s.logins...)
}

// Requests returns every request received as `<METHOD> <path>[?query]`.
func (s *Server) Requests() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) Uploads() []Upload {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != sessionValue {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil && cookie.Value == sessionValue {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body>dashboard</body></html>")
		return
	}

	input := fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, CsrfToken)
	if s.OmitCsrf {
		input = ""
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html><body>
<form id="authentication" method="post" action="/oauth2/authorize">
	%s
	<input type="text" name="username">
	<input type="password" name="password">
</form>
</body></html>`, input)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var attempt LoginAttempt
	err := json.NewDecoder(r.Body).Decode(&attempt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	attempt.Referer = r.Header.Get("Referer")
	attempt.UserAgent = r.Header.Get("User-Agent")

	s.mutex.Lock()
	s.logins = append(s.logins, attempt)
	s.mutex.Unlock()

	if attempt.CsrfToken != CsrfToken ||
		attempt.Username != s.Login ||
		attempt.Password != s.Password ||
		attempt.TemporaryAuth != "N" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  "access",
		"refresh_token": "refresh",
	})
}

type listedRecord struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Client struct {
		Uuid string `json:"uuid"`
	} `json:"client"`
}

// writeMapping renders records as a code -> record object, keeping their order.
// An empty mapping is rendered as `[]`, like the vendor does.
func writeMapping(out *bytes.Buffer, records []Record) {
	if len(records) == 0 {
		out.WriteString("[]")
		return
	}
	out.WriteByte('{')
	for i, record := range records {
		if i > 0 {
			out.WriteByte(',')
		}
		listed := listedRecord{Code: record.Code, Name: record.Name, Type: record.Type}
		listed.Client.Uuid = record.Uuid

		key, _ := json.Marshal(record.Code)
		value, _ := json.Marshal(listed)
		out.Write(key)
		out.WriteByte(':')
		out.Write(value)
	}
	out.WriteByte('}')
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such page"})
		return
	}

	if s.ListingBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.ListingBody))
		return
	}

	records := s.Records()
	var out bytes.Buffer
	out.WriteString(`{"widgets":{"own_integrations":`)

	if s.Marketplace {
		start := (page - 1) * s.PageSize
		end := start + s.PageSize
		if start > len(records) {
			start = len(records)
		}
		if end > len(records) {
			end = len(records)
		}
		writeMapping(&out, records[start:end])
	} else {
		var categories []string
		grouped := map[string][]Record{}
		for _, record := range records {
			if _, ok := grouped[record.Category]; !ok {
				categories = append(categories, record.Category)
			}
			grouped[record.Category] = append(grouped[record.Category], record)
		}

		if len(categories) == 0 {
			out.WriteString("[]")
		} else {
			out.WriteByte('{')
			for i, category := range categories {
				if i > 0 {
					out.WriteByte(',')
				}
				key, _ := json.Marshal(category)
				out.Write(key)
				out.WriteByte(':')
				writeMapping(&out, grouped[category])
			}
			out.WriteByte('}')
		}
	}
	out.WriteString(`}}`)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out.Bytes())
}

func (s *Server) listingName(body map[string]any) string {
	names, _ := body["name"].(map[string]any)
	name, _ := names[s.ListingLocale].(string)
	return name
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mutex.Lock()
	s.nextId++
	uuid := fmt.Sprintf("6f1d7c1e-0000-4000-8000-%012d", s.nextId)
	if s.CreatedUuid != "" {
		uuid = s.CreatedUuid
	}
	s.registrations[uuid] = body
	s.records = append(s.records, Record{
		Category: "own",
		Code:     fmt.Sprintf("widget_%d", s.nextId),
		Name:     s.listingName(body),
		Type:     "widget",
		Uuid:     uuid,
	})
	s.mutex.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"uuid": uuid})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")

	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	index := -1
	for i, record := range s.records {
		if record.Uuid == uuid {
			index = i
			break
		}
	}
	if index < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such client"})
		return
	}
	s.records[index].Name = s.listingName(body)
	s.registrations[uuid] = body

	writeJSON(w, http.StatusOK, map[string]string{"uuid": uuid})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.UploadStatus != 0 {
		writeJSON(w, s.UploadStatus, map[string]string{"error": "upload rejected"})
		return
	}

	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	file, header, err := r.FormFile("widget")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mutex.Lock()
	s.uploads = append(s.uploads, Upload{
		Uuid:        r.PathValue("uuid"),
		RawQuery:    r.URL.RawQuery,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		FormValue:   r.FormValue("_widget"),
		Data:        data,
	})
	s.mutex.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"result": true})
}
