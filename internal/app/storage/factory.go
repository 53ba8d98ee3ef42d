// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern so that the sync manager and the
// leaderboard service always share one store.
package storage

import (
	"context"
	"fmt"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service/inmemory"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	"github.com/gdgc-dbit/leaderboard-sync/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
//
// The factory encapsulates the creation of:
// - StoreLeaser: the persisted leaderboard records and the run lease
// - StatusPersistence: tracks the outcome of runs
// - LeaderboardService: serves dashboard reads from the same store
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateStore returns the store shared by every component of this factory.
	// Repeated calls return the same instance.
	CreateStore(ctx context.Context) (storage.StoreLeaser, error)

	// CreateStatusPersistence creates persistence for the run status.
	CreateStatusPersistence(ctx context.Context) (status.StatusPersistence, error)

	// CreateLeaderboardService creates the read service over the shared store.
	CreateLeaderboardService(ctx context.Context, opts ...inmemory.Option) (service.LeaderboardService, error)

	// Cleanup releases any resources held by this factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
// File and SQLite storage share the local factory; database storage connects to PostgreSQL.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg)
	case config.StorageTypeFile, config.StorageTypeSQLite:
		return NewFileFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}

// createLeaderboardService builds the read service on top of a store
func createLeaderboardService(
	ctx context.Context,
	f Factory,
	opts ...inmemory.Option,
) (service.LeaderboardService, error) {
	store, err := f.CreateStore(ctx)
	if err != nil {
		return nil, err
	}
	return inmemory.New(store, opts...)
}
