package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevingruber/turbo-cache/internal/config"
	"github.com/kevingruber/turbo-cache/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(tokens ...string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 4000},
		Storage: config.StorageConfig{Provider: "memory", Bucket: "turbo-cache"},
		Cache:   config.CacheConfig{MaxEntrySizeMB: 1},
		Auth:    config.AuthConfig{Tokens: tokens},
		Metrics: config.MetricsConfig{Enabled: true},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store storage.Storage) *Server {
	t.Helper()
	srv, err := New(cfg, store, zerolog.Nop())
	require.NoError(t, err)
	return srv
}

type request struct {
	method string
	target string
	body   string
	token  string
}

func (s *Server) do(r request) *httptest.ResponseRecorder {
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.target, body)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestArtifactRoundTrip(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodPut, target: "/artifacts/123?teamId=t1", body: "hello", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"urls":["t1/123"]}`, w.Body.String())

	w = srv.do(request{method: http.MethodGet, target: "/artifacts/123?teamId=t1", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())

	w = srv.do(request{method: http.MethodHead, target: "/artifacts/123?teamId=t1", token: "abc"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(request{method: http.MethodGet, target: "/artifacts/999?teamId=t1", token: "abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArtifactPrefixesShareStorage(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodPut, target: "/v8/artifacts/123?slug=acme", body: "v8", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"urls":["acme/123"]}`, w.Body.String())

	w = srv.do(request{method: http.MethodGet, target: "/artifacts/123?team=acme", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v8", w.Body.String())
}

func TestTeamIDTakesPrecedence(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodPut, target: "/v8/artifacts/1?slug=s&team=t&teamId=id", body: "x", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"urls":["id/1"]}`, w.Body.String())
}

func TestArtifactAuth(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodGet, target: "/v8/artifacts/123?teamId=t1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(request{method: http.MethodPut, target: "/v8/artifacts/123?teamId=t1", body: "x", token: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(request{method: http.MethodPost, target: "/v8/artifacts/events", body: "[]"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(request{method: http.MethodPost, target: "/v8/artifacts/events", body: "[]", token: "abc"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNoTokensConfigured(t *testing.T) {
	srv := newTestServer(t, testConfig(), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodGet, target: "/v8/artifacts/123?teamId=t1", token: "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"statusCode":400,"error":"Bad Request","message":"Missing Turbo Token configuration"}`,
		w.Body.String())

	w = srv.do(request{method: http.MethodGet, target: "/v8/artifacts/status"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusIsPublic(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	for _, target := range []string{"/v8/artifacts/status", "/artifacts/status"} {
		w := srv.do(request{method: http.MethodGet, target: target})
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.JSONEq(t, `{"status":"enabled"}`, w.Body.String(), target)
	}
}

func TestMissingTeamIsBadRequest(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodPut, target: "/v8/artifacts/123", body: "x", token: "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "teamId")
}

func TestPayloadTooLarge(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	big := strings.Repeat("x", 1024*1024+1)
	w := srv.do(request{method: http.MethodPut, target: "/v8/artifacts/big?teamId=t1", body: big, token: "abc"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFileProvider(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir(), "turbo-cache")
	require.NoError(t, err)
	srv := newTestServer(t, testConfig("abc"), store)

	w := srv.do(request{method: http.MethodPut, target: "/v8/artifacts/abc?teamId=t1", body: "on disk", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)

	data, err := store.Get(context.Background(), "t1/abc")
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(data))

	w = srv.do(request{method: http.MethodGet, target: "/v8/artifacts/abc?teamId=t1", token: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "on disk", w.Body.String())
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodGet, target: "/turborepo/token?redirect_uri=http://127.0.0.1:9789"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"redirect to http://127.0.0.1:9789, token"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, testConfig("abc"), storage.NewMemoryStorage())

	req := httptest.NewRequest(http.MethodOptions, "/v8/artifacts/123", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "authorization,x-artifact-duration")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

type downStorage struct{ storage.Storage }

func (downStorage) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(), storage.NewMemoryStorage())

	w := srv.do(request{method: http.MethodGet, target: "/ping"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = srv.do(request{method: http.MethodGet, target: "/health"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","storage":"connected"}`, w.Body.String())

	down := newTestServer(t, testConfig(), downStorage{storage.NewMemoryStorage()})
	w = down.do(request{method: http.MethodGet, target: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), storage.NewMemoryStorage())
	w := srv.do(request{method: http.MethodGet, target: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv = newTestServer(t, cfg, storage.NewMemoryStorage())
	w = srv.do(request{method: http.MethodGet, target: "/metrics"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
