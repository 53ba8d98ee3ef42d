package app

import (
	"github.com/gdgc-dbit/leaderboard-sync/internal/app/storage"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator schedules reconciliation runs
	SyncCoordinator coordinator.Coordinator

	// LeaderboardService serves dashboard reads
	LeaderboardService service.LeaderboardService

	// StorageFactory owns the store shared by the components above
	StorageFactory storage.Factory
}
