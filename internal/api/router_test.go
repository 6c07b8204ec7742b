package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T, rateLimit config.RateLimitConfig) (*Router, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	cfg := config.Config{Environment: "test", RateLimit: rateLimit}
	router := NewRouter(cfg, repo, zerolog.Nop(), BuildInfo{Version: "1.0.0", GitCommit: "abc"},
		users.WithBcryptCost(bcrypt.MinCost))
	t.Cleanup(router.Close)
	return router, repo
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.RemoteAddr = "203.0.113.7:51000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDirectoryFlow(t *testing.T) {
	router, repo := newTestRouter(t, config.RateLimitConfig{})

	rec := call(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Анна", "email": "anna@example.org", "password": "secret", "accountType": "nko",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "anna@example.org", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotContains(t, login.User, "password")
	require.Equal(t, "nko", login.User["accountType"])

	rec = call(t, router, http.MethodPost, "/api/nko", login.Token, map[string]string{
		"name": "Зелёный Глазов", "category": "Экология", "description": "Субботники", "city": "Глазов",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = call(t, router, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Зелёный Глазов")

	rec = call(t, router, http.MethodPost, "/api/nko", login.Token, map[string]string{
		"name": "Без города", "category": "Экология", "description": "Субботники",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, []string{"city"}, problem.Errors["missing"])
	require.Contains(t, problem.Message, "город")

	// An operator approval makes the listing public.
	moderation := nko.NewService(repo.Listings(), audit.Nop(), zerolog.Nop())
	_, err := moderation.Approve(context.Background(), created.ID)
	require.NoError(t, err)

	rec = call(t, router, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Зелёный Глазов")
}

func TestRouterMiddlewareChain(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{})

	rec := call(t, router, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{})

	rec := call(t, router, http.MethodPut, "/api/nko", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, POST", rec.Header().Get("Allow"))

	rec = call(t, router, http.MethodGet, "/api/auth/login", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestRouterAuthRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{AuthPerMinute: 1, PublicPerMinute: 1000})

	body := map[string]string{"email": "ghost@example.org", "password": "x"}
	first := call(t, router, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusUnauthorized, first.Code)

	second := call(t, router, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))

	// Public routes draw from their own bucket.
	rec := call(t, router, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{})

	for _, path := range []string{"/healthz", "/readyz", "/health", "/version"} {
		rec := call(t, router, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	call(t, router, http.MethodGet, "/api/nko", "", nil)
	rec := call(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "nko_directory_"))
}

func TestMethodMux(t *testing.T) {
	mux := methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("GET response"))
		}),
		http.MethodPost: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}),
	})

	tests := []struct {
		name         string
		method       string
		expectStatus int
		expectAllow  string
	}{
		{name: "GET allowed", method: http.MethodGet, expectStatus: http.StatusOK},
		{name: "POST allowed", method: http.MethodPost, expectStatus: http.StatusCreated},
		{name: "PUT not allowed", method: http.MethodPut, expectStatus: http.StatusMethodNotAllowed, expectAllow: "GET, POST"},
		{name: "OPTIONS not allowed", method: http.MethodOptions, expectStatus: http.StatusMethodNotAllowed, expectAllow: "GET, POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, "/test", nil))
			require.Equal(t, tt.expectStatus, w.Code)
			require.Equal(t, tt.expectAllow, w.Header().Get("Allow"))
		})
	}
}

func TestAllowedMethods(t *testing.T) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.Equal(t, "", allowedMethods(map[string]http.Handler{}))
	require.Equal(t, "GET", allowedMethods(map[string]http.Handler{http.MethodGet: noop}))
	require.Equal(t, "DELETE, GET, POST, PUT", allowedMethods(map[string]http.Handler{
		http.MethodPut: noop, http.MethodGet: noop, http.MethodDelete: noop, http.MethodPost: noop,
	}))
}
