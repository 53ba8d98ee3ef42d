package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	pkgsync "github.com/gdgc-dbit/leaderboard-sync/internal/sync"
	"github.com/gdgc-dbit/leaderboard-sync/internal/telemetry"
)

// successMessage is shown to admins after a successful run
const successMessage = "Leaderboard updated!"

// checkSync performs a sync check and runs when the manager says so.
// A check that finds a run in progress is skipped.
func (c *defaultCoordinator) checkSync(ctx context.Context, trigger string) {
	if !c.runMu.TryLock() {
		slog.Debug("Run in progress, skipping sync check", "trigger", trigger)
		return
	}
	defer c.runMu.Unlock()

	var reason pkgsync.Reason
	c.withStatus(func(syncStatus *status.SyncStatus) {
		reason = c.manager.ShouldSync(ctx, syncStatus.Copy(), false)
	})
	slog.Info("Sync check", "trigger", trigger, "shouldSync", reason.ShouldSync(), "reason", reason.String())

	if reason.ShouldSync() {
		c.performSync(ctx, trigger)
	} else {
		c.updateStatusForSkippedSync(ctx, reason)
		c.syncMetrics.RecordSync(ctx, 0, telemetry.SyncResultSkipped, trigger)
	}
}

// performSync executes one run and updates status accordingly. runMu must be held.
func (c *defaultCoordinator) performSync(ctx context.Context, trigger string) (*pkgsync.Result, *pkgsync.Error) {
	runCtx, cancel := context.WithTimeout(ctx, c.config.GetRunTimeout())
	defer cancel()

	// Ensure status is persisted at the end, whatever the result
	defer func() {
		c.withStatus(func(syncStatus *status.SyncStatus) {
			if err := c.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
				slog.Error("Failed to persist final sync status", "error", err)
			}
		})
	}()

	var attemptCount int
	c.withStatus(func(syncStatus *status.SyncStatus) {
		syncStatus.Phase = status.SyncPhaseSyncing
		syncStatus.Message = "Sync in progress"
		now := c.now()
		syncStatus.LastAttempt = &now
		syncStatus.AttemptCount++
		attemptCount = syncStatus.AttemptCount

		// Persist the "Syncing" state immediately so it's visible
		if err := c.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
			slog.Warn("Failed to persist syncing status", "error", err)
		}
	})

	slog.Info("Starting sync operation", "trigger", trigger, "attempt", attemptCount)

	start := c.now()
	result, syncErr := c.manager.PerformSync(runCtx)
	duration := c.now().Sub(start)

	now := c.now()
	c.withStatus(func(syncStatus *status.SyncStatus) {
		if syncErr != nil {
			syncStatus.Phase = status.SyncPhaseFailed
			syncStatus.Message = syncErr.Message
			slog.Error("Sync failed", "trigger", trigger, "kind", string(syncErr.Kind), "error", syncErr.Message)
			return
		}

		syncStatus.Phase = status.SyncPhaseComplete
		syncStatus.Message = successMessage
		syncStatus.LastSyncTime = &now
		syncStatus.LastSyncHash = result.Hash
		syncStatus.LastRunID = result.RunID
		syncStatus.Participants = result.Participants
		syncStatus.Locked = result.Locked
		syncStatus.Violations = result.Violations
		syncStatus.AttemptCount = 0
		hashPreview := result.Hash
		if len(hashPreview) > 8 {
			hashPreview = hashPreview[:8]
		}
		slog.Info("Sync completed successfully",
			"trigger", trigger,
			"run_id", result.RunID,
			"participants", result.Participants,
			"hash", hashPreview)
	})

	if syncErr != nil {
		c.syncMetrics.RecordSync(ctx, duration, telemetry.SyncResultFailed, trigger)
		return nil, syncErr
	}

	c.syncMetrics.RecordSync(ctx, duration, telemetry.SyncResultSuccess, trigger)
	c.syncMetrics.RecordViolations(ctx, result.Violations)
	c.leaderboardMetrics.RecordParticipants(ctx, int64(result.Participants), int64(result.Locked))
	return result, nil
}

// updateStatusForSkippedSync records why a check did not run.
// The phase is left alone so Failed states are not hidden.
func (c *defaultCoordinator) updateStatusForSkippedSync(ctx context.Context, reason pkgsync.Reason) {
	c.withStatus(func(syncStatus *status.SyncStatus) {
		syncStatus.Message = fmt.Sprintf("Sync skipped: %s", reason.String())
		if err := c.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
			slog.Warn("Failed to persist skipped sync status", "error", err)
		}
	})
}
