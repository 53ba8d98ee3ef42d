package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gdgc-dbit/leaderboard-sync/internal/api/common"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sync"
)

// SuccessMessage is returned to the admin after a successful run
const SuccessMessage = "Leaderboard updated!"

// RequireAdminToken rejects requests that do not carry the bearer token.
// An empty token disables the protected routes.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				common.WriteErrorResponse(w, "admin access is not configured", http.StatusForbidden)
				return
			}

			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="leaderboard-admin"`)
				common.WriteErrorResponse(w, "invalid or missing admin token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// StatusCodeForKind maps a failed run to an HTTP status code
func StatusCodeForKind(kind sync.ErrorKind) int {
	switch kind {
	case sync.KindEmptySnapshot:
		return http.StatusUnprocessableEntity
	case sync.KindLeaseUnavailable:
		return http.StatusConflict
	case sync.KindSourceUnavailable, sync.KindStoreReadFailure, sync.KindStoreWriteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// reconcileHandler handles POST /v1/admin/reconcile
func reconcileHandler(reconciler Reconciler, svc service.LeaderboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, syncErr := reconciler.RunNow(r.Context())
		if syncErr != nil {
			slog.WarnContext(r.Context(), "Admin triggered run failed", "kind", string(syncErr.Kind), "error", syncErr.Error())
			common.WriteJSONResponse(w, common.ErrorResponse{
				Error: syncErr.Message,
				Kind:  string(syncErr.Kind),
			}, StatusCodeForKind(syncErr.Kind))
			return
		}

		if inv, ok := svc.(service.Invalidator); ok {
			inv.Invalidate()
		}

		common.WriteJSONResponse(w, ReconcileResponse{Message: SuccessMessage, Result: result}, http.StatusOK)
	}
}

// statusHandler handles GET /v1/status
func statusHandler(reconciler Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, reconciler.GetStatus(), http.StatusOK)
	}
}
