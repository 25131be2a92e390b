package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contactkeeper/backend/internal/auth"
	"github.com/contactkeeper/backend/internal/contacts"
	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/health"
	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/memstore"
	"github.com/contactkeeper/backend/internal/metrics"
	"github.com/contactkeeper/backend/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(logger.New(io.Discard, 0, "json")).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(log *logger.Logger) *Router {
	m := metrics.New()

	authSvc := auth.NewService(memstore.NewUserRepository(), auth.NewIssuer("test-secret", time.Hour), bcrypt.MinCost)
	contactRepo := memstore.NewContactRepository()
	contactSvc := contacts.NewService(contactRepo)

	return NewRouter(Deps{
		AuthService:     authSvc,
		AuthHandlers:    auth.NewHandlers(authSvc, m, log),
		ContactHandlers: contacts.NewHandlers(contactSvc, m, log),
		Health: health.NewHandler(health.NewChecker(&health.CheckerConfig{
			Components: []health.Component{{Name: "store", Check: contactRepo.Ping, Critical: true}},
			Version:    "test",
		})),
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: []string{"*"},
	})
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path, body string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("x-auth-token", c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, srv *httptest.Server, name, email string) *client {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	resp := c.do(http.MethodPost, "/api/users", `{"name":"`+name+`","email":"`+email+`","password":"secret1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c.token = decode[auth.TokenResponse](t, resp).Token
	return c
}

func TestContactLifecycle(t *testing.T) {
	srv := newTestServer(t)
	jill := register(t, srv, "Jill", "jill@example.com")
	bob := register(t, srv, "Bob", "bob@example.com")

	me := decode[models.User](t, jill.do(http.MethodGet, "/api/auth", ""))
	assert.Equal(t, "jill@example.com", me.Email)

	first := decode[models.Contact](t, jill.do(http.MethodPost, "/api/contacts", `{"name":"Sara","email":"sara@example.com","type":"professional"}`))
	second := decode[models.Contact](t, jill.do(http.MethodPost, "/api/contacts", `{"name":"Ted","phone":"555-5555"}`))
	decode[models.Contact](t, bob.do(http.MethodPost, "/api/contacts", `{"name":"Bob's friend"}`))

	list := decode[[]models.Contact](t, jill.do(http.MethodGet, "/api/contacts", ""))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	resp := bob.do(http.MethodPut, "/api/contacts/"+first.ID.String(), `{"name":"Stolen"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	updated := decode[models.Contact](t, jill.do(http.MethodPut, "/api/contacts/"+first.ID.String(), `{"phone":"111"}`))
	assert.Equal(t, "Sara", updated.Name)
	assert.Equal(t, "111", updated.Phone)

	resp = jill.do(http.MethodDelete, "/api/contacts/"+second.ID.String(), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = jill.do(http.MethodDelete, "/api/contacts/"+second.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	list = decode[[]models.Contact](t, jill.do(http.MethodGet, "/api/contacts", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "111", list[0].Phone)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	anon := &client{t: t, base: srv.URL}

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth"},
		{http.MethodGet, "/api/contacts"},
		{http.MethodPost, "/api/contacts"},
		{http.MethodPost, "/api/contacts/export"},
	} {
		resp := anon.do(route.method, route.path, "{}")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
		body := decode[apperrors.ErrorResponse](t, resp)
		assert.Equal(t, apperrors.CodeNoToken, body.Error.Code)
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	resp := c.do(http.MethodPost, "/api/auth", `{"email":"nobody@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	requestID := resp.Header.Get(apperrors.RequestIDHeader)
	require.NotEmpty(t, requestID)
	body := decode[apperrors.ErrorResponse](t, resp)
	assert.Equal(t, apperrors.CodeInvalidCredentials, body.Error.Code)
	assert.Equal(t, requestID, body.Error.RequestID)
}

func TestDuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Jill", "jill@example.com")

	c := &client{t: t, base: srv.URL}
	resp := c.do(http.MethodPost, "/api/users", `{"name":"Jill","email":"JILL@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeEmailExists, decode[apperrors.ErrorResponse](t, resp).Error.Code)
}

func TestExportNotConfigured(t *testing.T) {
	srv := newTestServer(t)
	jill := register(t, srv, "Jill", "jill@example.com")

	resp := jill.do(http.MethodPost, "/api/contacts/export", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGitHubRoutesAbsentWithoutClient(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	resp := c.do(http.MethodGet, "/api/github/search/users?q=octocat", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	register(t, srv, "Jill", "jill@example.com")

	resp := c.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "contactkeeper_users_registered")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/contacts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Auth-Token")
}

func TestContactListConditionalGet(t *testing.T) {
	srv := newTestServer(t)
	jill := register(t, srv, "Jill", "jill@example.com")
	decode[models.Contact](t, jill.do(http.MethodPost, "/api/contacts", `{"name":"Sara"}`))

	resp := jill.do(http.MethodGet, "/api/contacts", "")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/contacts", nil)
	require.NoError(t, err)
	req.Header.Set("x-auth-token", jill.token)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestRouter_PanicWithGzipAnswers500(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(logger.New(&buf, slog.LevelDebug, "json"))
	router.mux.HandleFunc("GET /api/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/boom", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	gr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var body apperrors.ErrorResponse
	require.NoError(t, json.NewDecoder(gr).Decode(&body))
	assert.Equal(t, apperrors.CodeInternalError, body.Error.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRouter_LogsRejectedRequests(t *testing.T) {
	var buf bytes.Buffer
	srv := httptest.NewServer(newTestRouter(logger.New(&buf, slog.LevelDebug, "json")).Handler())
	t.Cleanup(srv.Close)

	c := &client{t: t, base: srv.URL}
	resp := c.do(http.MethodPost, "/api/auth", `{"email":"nobody@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, buf.String(), "request rejected")
	assert.NotContains(t, buf.String(), "request failed")
}

func TestRouter_RequestIDHeaderMatchesBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/contacts", nil)
	require.NoError(t, err)
	req.Header.Set(apperrors.RequestIDHeader, strings.Repeat("r", 300))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := decode[apperrors.ErrorResponse](t, resp)
	assert.Len(t, resp.Header.Get(apperrors.RequestIDHeader), 128)
	assert.Equal(t, resp.Header.Get(apperrors.RequestIDHeader), body.Error.RequestID)

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/health/live", nil)
	require.NoError(t, err)
	req.Header.Set(apperrors.RequestIDHeader, strings.Repeat("r", 300))
	live, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer live.Body.Close()
	assert.Len(t, live.Header.Get(apperrors.RequestIDHeader), 128)
}
