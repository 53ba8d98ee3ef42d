//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdgc-dbit/leaderboard-sync/database"
	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

func TestDatabaseFactory(t *testing.T) {
	t.Parallel()

	pool, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)

	ctx := context.Background()
	cfg := &config.Config{
		Storage: &config.StorageConfig{Type: config.StorageTypeDatabase, DataDir: t.TempDir()},
	}

	factory, err := NewDatabaseFactory(ctx, cfg, WithPool(pool))
	require.NoError(t, err)

	store, err := factory.CreateStore(ctx)
	require.NoError(t, err)
	again, err := factory.CreateStore(ctx)
	require.NoError(t, err)
	assert.Same(t, store, again)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.BatchWrite(ctx, []leaderboard.PersistedRecord{{
		Name:           "Ada Lovelace",
		Rank:           1,
		CompletedPaths: leaderboard.TotalPaths,
		TotalPaths:     leaderboard.TotalPaths,
		ArcadeGames:    leaderboard.ArcadeYes,
		Locked:         true,
		UpdatedAt:      now,
	}}))

	svc, err := factory.CreateLeaderboardService(ctx)
	require.NoError(t, err)
	entry, err := svc.GetEntry(ctx, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Rank)
	assert.True(t, entry.Locked)

	persistence, err := factory.CreateStatusPersistence(ctx)
	require.NoError(t, err)
	assert.NotNil(t, persistence)
}

func TestNewDatabaseFactory_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDatabaseFactory(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewDatabaseFactory(context.Background(), &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration is required")
}
