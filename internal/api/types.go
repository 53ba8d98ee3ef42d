package api

import (
	"github.com/gdgc-dbit/leaderboard-sync/internal/sync"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string `json:"status" example:"ready"`
}

// ReconcileResponse is returned by a successful admin trigger
type ReconcileResponse struct {
	Message string `json:"message" example:"Leaderboard updated!"`
	*sync.Result
}
