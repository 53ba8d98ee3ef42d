package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service/inmemory"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	"github.com/gdgc-dbit/leaderboard-sync/internal/storage"
)

// FileFactory creates components backed by the local filesystem: a JSON
// document or a SQLite database, plus the status file.
type FileFactory struct {
	config *config.Config

	mu    sync.Mutex
	store storage.StoreLeaser

	statusPersistence status.StatusPersistence
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a new local storage factory.
// It ensures the data directory exists.
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	slog.Info("Creating local storage factory",
		"type", string(cfg.GetStorageType()),
		"path", cfg.GetStoragePath(),
		"data_dir", dataDir)

	return &FileFactory{
		config:            cfg,
		statusPersistence: status.NewFileStatusPersistence(cfg.GetStatusPath()),
	}, nil
}

// CreateStore opens the JSON or SQLite store on first use
func (f *FileFactory) CreateStore(_ context.Context) (storage.StoreLeaser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store != nil {
		return f.store, nil
	}

	path := f.config.GetStoragePath()
	var (
		store storage.StoreLeaser
		err   error
	)
	switch f.config.GetStorageType() {
	case config.StorageTypeSQLite:
		slog.Debug("Opening SQLite store", "path", path)
		store, err = storage.OpenSQLiteStore(path)
	default:
		slog.Debug("Opening file store", "path", path)
		store, err = storage.NewFileStore(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	f.store = store
	return store, nil
}

// CreateStatusPersistence returns the file-based status persistence
func (f *FileFactory) CreateStatusPersistence(_ context.Context) (status.StatusPersistence, error) {
	return f.statusPersistence, nil
}

// CreateLeaderboardService creates the read service over the local store
func (f *FileFactory) CreateLeaderboardService(
	ctx context.Context,
	opts ...inmemory.Option,
) (service.LeaderboardService, error) {
	slog.Debug("Creating local leaderboard service")
	return createLeaderboardService(ctx, f, opts...)
}

// Cleanup closes the store if it was opened
func (f *FileFactory) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store != nil {
		if err := f.store.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
		f.store = nil
	}
}
