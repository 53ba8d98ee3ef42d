package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	pkgsync "github.com/gdgc-dbit/leaderboard-sync/internal/sync"
	"github.com/gdgc-dbit/leaderboard-sync/internal/telemetry"
)

// Run triggers recorded on metrics and in logs
const (
	TriggerInitial  = "initial"
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
)

// Coordinator schedules reconciliation runs and serializes them
type Coordinator interface {
	// Start loads the persisted status, performs the initial run and then runs
	// periodically when an interval is configured.
	// Blocks until context is cancelled or an unrecoverable error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator
	Stop() error

	// RunNow performs an admin requested run. It fails with
	// KindLeaseUnavailable when another run is in progress.
	RunNow(ctx context.Context) (*pkgsync.Result, *pkgsync.Error)

	// RunOnce restores the persisted status and performs a single run
	// without starting the scheduler. Used by one-shot invocations.
	RunOnce(ctx context.Context) (*pkgsync.Result, *pkgsync.Error)

	// GetStatus returns a copy of the current status
	GetStatus() *status.SyncStatus
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager           pkgsync.Manager
	config            *config.Config
	statusPersistence status.StatusPersistence

	// runMu is held for the whole duration of a run
	runMu sync.Mutex

	statusMu   sync.Mutex
	syncStatus *status.SyncStatus

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
	startOnce  sync.Once

	now func() time.Time

	// Metrics
	syncMetrics        *telemetry.SyncMetrics
	leaderboardMetrics *telemetry.LeaderboardMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithLeaderboardMetrics sets the leaderboard gauges for the coordinator
func WithLeaderboardMetrics(metrics *telemetry.LeaderboardMetrics) Option {
	return func(c *defaultCoordinator) {
		c.leaderboardMetrics = metrics
	}
}

// WithClock overrides the time source used for status timestamps
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		c.now = now
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	statusPersistence status.StatusPersistence,
	cfg *config.Config,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:           manager,
		statusPersistence: statusPersistence,
		config:            cfg,
		syncStatus:        &status.SyncStatus{},
		done:              make(chan struct{}),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background sync coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	started := false
	c.startOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("coordinator already started")
	}

	coordCtx, cancel := context.WithCancel(ctx)
	c.statusMu.Lock()
	c.cancelFunc = cancel
	c.statusMu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	if err := c.loadStatus(coordCtx); err != nil {
		return err
	}

	interval := c.config.GetSyncInterval()
	slog.Info("Starting background sync coordinator",
		"interval", interval.String(),
		"source", c.config.Source.GetLocation())

	// Perform initial sync check
	c.checkSync(coordCtx, TriggerInitial)

	if interval <= 0 {
		slog.Info("No sync interval configured, only admin triggered runs will follow")
		<-coordCtx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkSync(coordCtx, TriggerPeriodic)
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.statusMu.Lock()
	cancel := c.cancelFunc
	c.statusMu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// RunNow performs an admin requested run
func (c *defaultCoordinator) RunNow(ctx context.Context) (*pkgsync.Result, *pkgsync.Error) {
	if !c.runMu.TryLock() {
		slog.Info("Rejected manual run, another run is in progress")
		c.syncMetrics.RecordSync(ctx, 0, telemetry.SyncResultSkipped, TriggerManual)
		return nil, &pkgsync.Error{
			Kind:    pkgsync.KindLeaseUnavailable,
			Message: "reconciliation already in progress",
		}
	}
	defer c.runMu.Unlock()

	return c.performSync(ctx, TriggerManual)
}

// RunOnce restores the persisted status and performs a single run
func (c *defaultCoordinator) RunOnce(ctx context.Context) (*pkgsync.Result, *pkgsync.Error) {
	if err := c.loadStatus(ctx); err != nil {
		return nil, &pkgsync.Error{
			Kind:    pkgsync.KindStoreReadFailure,
			Message: err.Error(),
			Err:     err,
		}
	}
	return c.RunNow(ctx)
}

// GetStatus returns a copy of the current status
func (c *defaultCoordinator) GetStatus() *status.SyncStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.syncStatus.Copy()
}

// loadStatus restores the persisted status. A run that was interrupted while
// syncing is recorded as failed so that it is retried.
func (c *defaultCoordinator) loadStatus(ctx context.Context) error {
	loaded, err := c.statusPersistence.LoadStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync status: %w", err)
	}
	if loaded == nil {
		loaded = &status.SyncStatus{}
	}

	if loaded.Phase == status.SyncPhaseSyncing {
		slog.Warn("Previous run was interrupted, marking it as failed")
		loaded.Phase = status.SyncPhaseFailed
		loaded.Message = "Run interrupted before completion"
		if err := c.statusPersistence.SaveStatus(ctx, loaded); err != nil {
			slog.Warn("Failed to persist recovered sync status", "error", err)
		}
	}

	c.withStatus(func(syncStatus *status.SyncStatus) {
		*syncStatus = *loaded
	})
	return nil
}

// withStatus runs fn with exclusive access to the current status
func (c *defaultCoordinator) withStatus(fn func(*status.SyncStatus)) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	fn(c.syncStatus)
}
