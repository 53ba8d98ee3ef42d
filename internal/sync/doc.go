// Package sync runs leaderboard reconciliation against the configured snapshot
// source and persisted state store.
//
// # Core Interfaces
//
//   - Manager: decides whether a run is needed and performs one run
//   - DataChangeDetector: detects changes in the snapshot using hash comparison
//   - AutomaticSyncChecker: interval based scheduling
//
// The sync/coordinator subpackage schedules runs: the initial run on startup,
// periodic runs on a ticker and admin triggered runs. It serializes runs and
// persists the status after every attempt.
//
// # Runs
//
// Manager.PerformSync takes the store lease, fetches the snapshot, reads the
// prior records, reconciles and writes the full write-set in one batch. Every
// run is tagged with a UUID that is attached to the context logger.
//
// A failed run returns an *Error whose Kind tells the caller what went wrong:
//
//   - KindSourceUnavailable: the snapshot could not be fetched or decoded
//   - KindEmptySnapshot: the snapshot had no participants; the store is untouched
//   - KindStoreReadFailure: prior records could not be read
//   - KindStoreWriteFailure: the batch write failed and nothing was applied
//   - KindLeaseUnavailable: another run holds the store lease
//
// # Sync Reasons
//
// Manager.ShouldSync returns a Reason. Use Reason.ShouldSync() to check whether
// a run is needed and Reason.String() for logging.
package sync
