package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gdgc-dbit/leaderboard-sync/internal/api/common"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
)

// LeaderboardRouter creates the read-only leaderboard routes
func LeaderboardRouter(svc service.LeaderboardService) http.Handler {
	routes := &leaderboardRoutes{service: svc}

	r := chi.NewRouter()
	r.Get("/", routes.listEntries)
	r.Get("/stats", routes.getStats)
	r.Get("/{name}", routes.getEntry)

	return r
}

type leaderboardRoutes struct {
	service service.LeaderboardService
}

// listEntries handles GET /v1/leaderboard?q=&includeStale=&limit=&cursor=
func (lr *leaderboardRoutes) listEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var opts []service.Option

	if q := query.Get("q"); q != "" {
		opts = append(opts, service.WithSearch(q))
	}
	if raw := query.Get("includeStale"); raw != "" {
		includeStale, err := strconv.ParseBool(raw)
		if err != nil {
			common.WriteErrorResponse(w, "includeStale must be a boolean", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithIncludeStale(includeStale))
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteErrorResponse(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLimit(limit))
	}
	if cursor := query.Get("cursor"); cursor != "" {
		opts = append(opts, service.WithCursor(cursor))
	}

	list, err := lr.service.ListEntries(r.Context(), opts...)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOption) || errors.Is(err, service.ErrInvalidCursor) {
			common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to list leaderboard", "error", err)
		common.WriteErrorResponse(w, "Failed to list leaderboard", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, list, http.StatusOK)
}

// getEntry handles GET /v1/leaderboard/{name}
func (lr *leaderboardRoutes) getEntry(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := lr.service.GetEntry(r.Context(), name)
	if err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			common.WriteErrorResponse(w, "Participant not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to get participant", "name", name, "error", err)
		common.WriteErrorResponse(w, "Failed to get participant", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, entry, http.StatusOK)
}

// getStats handles GET /v1/leaderboard/stats
func (lr *leaderboardRoutes) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := lr.service.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute leaderboard stats", "error", err)
		common.WriteErrorResponse(w, "Failed to compute leaderboard stats", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, stats, http.StatusOK)
}
