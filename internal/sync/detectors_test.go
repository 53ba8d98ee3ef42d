package sync

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sources"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
)

func fileSourceConfig(path string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			Type: config.SourceTypeFile,
			File: &config.FileConfig{Path: path},
		},
	}
}

func TestDefaultDataChangeDetector_IsDataChanged(t *testing.T) {
	t.Parallel()

	testFilePath := filepath.Join(t.TempDir(), "progress.csv")
	testData := []byte("User Name,# of Skill Badges Completed\nAda,3\n")
	require.NoError(t, os.WriteFile(testFilePath, testData, 0600))
	testHash := fmt.Sprintf("%x", sha256.Sum256(testData))

	tests := []struct {
		name            string
		config          *config.Config
		status          *status.SyncStatus
		expectedChanged bool
		expectError     bool
	}{
		{
			name:            "data changed when no last sync hash",
			config:          fileSourceConfig(testFilePath),
			status:          &status.SyncStatus{},
			expectedChanged: true,
		},
		{
			name:            "data changed when status is nil",
			config:          fileSourceConfig(testFilePath),
			status:          nil,
			expectedChanged: true,
		},
		{
			name:            "data unchanged when hash matches",
			config:          fileSourceConfig(testFilePath),
			status:          &status.SyncStatus{LastSyncHash: testHash},
			expectedChanged: false,
		},
		{
			name:            "data changed when hash differs",
			config:          fileSourceConfig(testFilePath),
			status:          &status.SyncStatus{LastSyncHash: "different-hash"},
			expectedChanged: true,
		},
		{
			name:            "error when file is missing",
			config:          fileSourceConfig(filepath.Join(t.TempDir(), "missing.csv")),
			status:          &status.SyncStatus{LastSyncHash: testHash},
			expectedChanged: true,
			expectError:     true,
		},
		{
			name: "error for unsupported source type",
			config: &config.Config{
				Source: config.SourceConfig{Type: "ftp"},
			},
			status:          &status.SyncStatus{LastSyncHash: testHash},
			expectedChanged: true,
			expectError:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detector := &DefaultDataChangeDetector{
				cfg:                  tt.config,
				sourceHandlerFactory: sources.NewSourceHandlerFactory(),
			}

			changed, err := detector.IsDataChanged(context.Background(), tt.status)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedChanged, changed)
		})
	}
}

func TestDefaultAutomaticSyncChecker_IsIntervalSyncNeeded(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}
	withInterval := func(interval string) *config.Config {
		return &config.Config{SyncPolicy: &config.SyncPolicyConfig{Interval: interval}}
	}

	tests := []struct {
		name     string
		config   *config.Config
		status   *status.SyncStatus
		expected bool
	}{
		{
			name:     "due without a policy",
			config:   &config.Config{},
			status:   &status.SyncStatus{LastAttempt: at(-time.Second)},
			expected: true,
		},
		{
			name:     "due when never attempted",
			config:   withInterval("10m"),
			status:   &status.SyncStatus{},
			expected: true,
		},
		{
			name:     "due when status is nil",
			config:   withInterval("10m"),
			status:   nil,
			expected: true,
		},
		{
			name:     "not due before the interval",
			config:   withInterval("10m"),
			status:   &status.SyncStatus{LastAttempt: at(-5 * time.Minute)},
			expected: false,
		},
		{
			name:     "due after the interval",
			config:   withInterval("10m"),
			status:   &status.SyncStatus{LastAttempt: at(-11 * time.Minute)},
			expected: true,
		},
		{
			name:     "due when a tick lands just short of the interval",
			config:   withInterval("10m"),
			status:   &status.SyncStatus{LastAttempt: at(-10*time.Minute + 20*time.Millisecond)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := &DefaultAutomaticSyncChecker{
				cfg: tt.config,
				now: func() time.Time { return now },
			}

			due, err := checker.IsIntervalSyncNeeded(tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, due)
		})
	}
}
