package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/db"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service/inmemory"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	"github.com/gdgc-dbit/leaderboard-sync/internal/storage"
)

// DatabaseFactory creates components whose leaderboard records live in PostgreSQL.
// The run status stays in the local data directory.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool

	mu    sync.Mutex
	store storage.StoreLeaser

	statusPersistence status.StatusPersistence
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithPool uses an existing connection pool instead of dialing one
func WithPool(pool *pgxpool.Pool) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.pool = pool
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	factory := &DatabaseFactory{
		config:            cfg,
		statusPersistence: status.NewFileStatusPersistence(cfg.GetStatusPath()),
	}

	// Apply options
	for _, opt := range opts {
		opt(factory)
	}

	if factory.pool == nil {
		if cfg.Database == nil {
			return nil, fmt.Errorf("database configuration is required for database storage type")
		}

		slog.Info("Creating database-backed storage factory",
			"host", cfg.Database.Host, "database", cfg.Database.Database)

		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		factory.pool = pool
	}

	return factory, nil
}

// CreateStore returns the PostgreSQL store over the factory's pool
func (d *DatabaseFactory) CreateStore(_ context.Context) (storage.StoreLeaser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.store != nil {
		return d.store, nil
	}

	store, err := storage.NewPostgresStore(d.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres store: %w", err)
	}
	d.store = store
	return store, nil
}

// CreateStatusPersistence returns the file-based status persistence
func (d *DatabaseFactory) CreateStatusPersistence(_ context.Context) (status.StatusPersistence, error) {
	return d.statusPersistence, nil
}

// CreateLeaderboardService creates the read service over the PostgreSQL store
func (d *DatabaseFactory) CreateLeaderboardService(
	ctx context.Context,
	opts ...inmemory.Option,
) (service.LeaderboardService, error) {
	slog.Debug("Creating database-backed leaderboard service")
	return createLeaderboardService(ctx, d, opts...)
}

// Cleanup releases resources held by the database factory.
// This closes the database connection pool and any active connections.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
