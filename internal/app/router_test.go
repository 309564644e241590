package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codesage-ai/interview-server/internal/adapter/auth"
	httpserver "github.com/codesage-ai/interview-server/internal/adapter/httpserver"
	"github.com/codesage-ai/interview-server/internal/app"
	"github.com/codesage-ai/interview-server/internal/config"
)

func TestParseOrigins(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"*"}, app.ParseOrigins(""))
	assert.Equal(t, []string{"*"}, app.ParseOrigins("*"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, app.ParseOrigins(" https://a.example, https://b.example "))
	assert.Equal(t, []string{"*"}, app.ParseOrigins(" , "))
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	t.Parallel()
	cfg := config.Config{AppEnv: "test", RateLimitPerMin: 60, CORSAllowOrigins: "*", MaxUploadMB: 5}
	srv := httpserver.NewServer(cfg, nil, nil, nil, nil, nil)
	verifier := auth.NewVerifier("router-test-secret", "")
	h := app.BuildRouter(cfg, srv, nil, verifier)

	t.Run("healthz is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("interview history requires auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/interviews", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resume upload requires auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/resume", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("security headers applied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}
