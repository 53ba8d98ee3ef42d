// Package api provides the REST API server for the leaderboard dashboard and the admin trigger.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sync"
)

//go:generate mockgen -destination=mocks/mock_reconciler.go -package=mocks -source=server.go Reconciler

// Reconciler runs reconciliation on demand and reports the last outcome
type Reconciler interface {
	// RunNow performs an admin requested run
	RunNow(ctx context.Context) (*sync.Result, *sync.Error)

	// GetStatus returns a copy of the current sync status
	GetStatus() *status.SyncStatus
}

// ServerOption configures the leaderboard API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	reconciler     Reconciler
	adminToken     string
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithReconciler enables the status and admin trigger endpoints
func WithReconciler(r Reconciler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.reconciler = r
	}
}

// WithAdminToken sets the bearer token required by admin endpoints.
// Without a token the admin endpoints reject every request.
func WithAdminToken(token string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.adminToken = token
	}
}

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates and configures the HTTP router with the given service and options
func NewServer(svc service.LeaderboardService, opts ...ServerOption) *chi.Mux {
	// Initialize configuration with defaults
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	// Apply middleware
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Mount health check routes directly at root
	r.Mount("/", HealthRouter(svc))

	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/leaderboard", LeaderboardRouter(svc))
		if cfg.reconciler != nil {
			r.Get("/status", statusHandler(cfg.reconciler))
			r.With(RequireAdminToken(cfg.adminToken)).
				Post("/admin/reconcile", reconcileHandler(cfg.reconciler, svc))
		}
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
