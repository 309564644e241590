// Package app assembles the HTTP surface from config and adapters.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codesage-ai/interview-server/internal/adapter/auth"
	httpserver "github.com/codesage-ai/interview-server/internal/adapter/httpserver"
	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/adapter/ws"
	"github.com/codesage-ai/interview-server/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means all origins.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middleware and routes.
// The websocket endpoints sit outside the per-request timeout and auth
// middleware: connections are long-lived and carry their token in the query
// string.
func BuildRouter(cfg config.Config, srv *httpserver.Server, wsHandler *ws.Handler, verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Authenticated REST surface.
	r.Group(func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		ar.Use(httpserver.RequireAuth(verifier))
		ar.Post("/v1/resume", srv.UploadResumeHandler())
		ar.Get("/v1/interviews", srv.ListInterviewsHandler())
		ar.Get("/v1/interviews/export", srv.ExportInterviewsHandler())
		ar.Get("/v1/interviews/{session_id}", srv.GetInterviewHandler())
		ar.Get("/v1/stats/overview", srv.StatsOverviewHandler())
	})

	// Live interview websockets.
	r.Get("/ws/interview", wsHandler.ServeInterview)
	r.Get("/ws/technical", wsHandler.ServeTechnical)

	// Health and metrics.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
