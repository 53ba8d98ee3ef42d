// Package coordinator schedules leaderboard reconciliation runs.
//
// It sits on top of sync.Manager and handles:
//
//   - The initial run on startup
//   - Periodic runs using time.Ticker when syncPolicy.interval is set
//   - Admin requested runs through RunNow
//   - Status persistence and thread-safe access
//   - Graceful shutdown
//
// # Serialization
//
// At most one run is in flight per process: every run holds an internal mutex,
// and a periodic check that finds it taken is skipped. RunNow fails fast with
// KindLeaseUnavailable instead of waiting. Across processes the store lease
// taken by the manager provides the same guarantee.
//
// # Usage Example
//
//	syncManager := sync.NewDefaultSyncManager(cfg, sourceFactory, store)
//	coord := coordinator.New(syncManager, status.NewFileStatusPersistence(cfg.GetStatusPath()), cfg)
//
//	go coord.Start(ctx)
//
//	// ... run server ...
//
//	coord.Stop()
//
// # Sync Decision Flow
//
// 1. Ticker fires (based on configured interval)
// 2. Coordinator calls checkSync()
// 3. checkSync() calls Manager.ShouldSync() to decide
// 4. If needed, performSync() executes the run under the run timeout
// 5. Status is updated and persisted at each phase transition
//
// Failed runs are logged and recorded as Failed; the coordinator keeps running
// and the next check retries. Status persistence errors are logged but never
// abort a run.
package coordinator
