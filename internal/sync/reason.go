package sync

// Reason is the outcome of a sync decision
type Reason int

const (
	// ReasonAlreadyInProgress means a run is currently in progress
	ReasonAlreadyInProgress Reason = iota
	// ReasonErrorCheckingSyncNeed means the sync policy could not be evaluated
	ReasonErrorCheckingSyncNeed
	// ReasonUpToDateWithPolicy means the interval has not elapsed yet
	ReasonUpToDateWithPolicy
	// ReasonSourceUnchanged means the snapshot hash matches the last run
	ReasonSourceUnchanged

	// ReasonNeverSynced means no run has completed yet
	ReasonNeverSynced
	// ReasonLastSyncFailed means the last attempt failed
	ReasonLastSyncFailed
	// ReasonManual means an admin requested the run
	ReasonManual
	// ReasonIntervalElapsed means the sync interval has elapsed
	ReasonIntervalElapsed
	// ReasonSourceDataChanged means the snapshot hash changed
	ReasonSourceDataChanged
	// ReasonErrorCheckingChanges means the change check failed; run anyway
	ReasonErrorCheckingChanges
)

var reasonNames = map[Reason]string{
	ReasonAlreadyInProgress:     "sync-already-in-progress",
	ReasonErrorCheckingSyncNeed: "error-checking-sync-need",
	ReasonUpToDateWithPolicy:    "up-to-date-with-policy",
	ReasonSourceUnchanged:       "source-data-unchanged",
	ReasonNeverSynced:           "never-synced",
	ReasonLastSyncFailed:        "last-sync-failed",
	ReasonManual:                "manual-sync",
	ReasonIntervalElapsed:       "interval-elapsed",
	ReasonSourceDataChanged:     "source-data-changed",
	ReasonErrorCheckingChanges:  "error-checking-data-changes",
}

// ShouldSync reports whether the reason calls for a run
func (r Reason) ShouldSync() bool {
	return r >= ReasonNeverSynced
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}
