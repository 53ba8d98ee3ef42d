package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gdgc-dbit/leaderboard-sync/internal/api/common"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/versions"
)

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.LeaderboardService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports ready once the store can be read
func readinessHandler(svc service.LeaderboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "Leaderboard not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, ReadinessResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
