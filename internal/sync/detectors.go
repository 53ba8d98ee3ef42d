package sync

import (
	"context"
	"time"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sources"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
)

// tickSlack absorbs ticker drift: a tick fires one interval after the previous
// tick, which is slightly less than one interval after the recorded attempt.
const tickSlack = time.Second

// DefaultDataChangeDetector implements DataChangeDetector
type DefaultDataChangeDetector struct {
	cfg                  *config.Config
	sourceHandlerFactory sources.SourceHandlerFactory
}

// IsDataChanged checks if source data has changed by comparing hashes
func (d *DefaultDataChangeDetector) IsDataChanged(ctx context.Context, syncStatus *status.SyncStatus) (bool, error) {
	var lastSyncHash string
	if syncStatus != nil {
		lastSyncHash = syncStatus.LastSyncHash
	}

	// If we don't have a last sync hash, consider data changed
	if lastSyncHash == "" {
		return true, nil
	}

	sourceHandler, err := d.sourceHandlerFactory.CreateHandler(d.cfg.Source.Type)
	if err != nil {
		return true, err
	}

	currentHash, err := sourceHandler.CurrentHash(ctx, &d.cfg.Source)
	if err != nil {
		return true, err
	}

	return currentHash != lastSyncHash, nil
}

// DefaultAutomaticSyncChecker implements AutomaticSyncChecker
type DefaultAutomaticSyncChecker struct {
	cfg *config.Config
	now func() time.Time
}

// IsIntervalSyncNeeded checks if the interval has elapsed since the last attempt.
// Without a configured interval every evaluation is due.
func (c *DefaultAutomaticSyncChecker) IsIntervalSyncNeeded(syncStatus *status.SyncStatus) (bool, error) {
	interval := c.cfg.GetSyncInterval()
	if interval <= 0 {
		return true, nil
	}

	var lastAttempt *time.Time
	if syncStatus != nil {
		lastAttempt = syncStatus.LastAttempt
	}
	if lastAttempt == nil {
		return true, nil
	}

	next := lastAttempt.Add(interval - min(tickSlack, interval/2))
	return !c.now().Before(next), nil
}
