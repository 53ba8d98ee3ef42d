package status

import "time"

// SyncPhase represents the current phase of a reconciliation run
type SyncPhase string

const (
	// SyncPhaseSyncing means a run is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last run completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last run failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus represents the current state of leaderboard reconciliation
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last run attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful run
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// LastSyncHash is the hash of the last successfully reconciled snapshot
	// Used to detect changes in source data
	LastSyncHash string `json:"lastSyncHash,omitempty"`

	// LastRunID identifies the last successful run in logs
	LastRunID string `json:"lastRunId,omitempty"`

	// Participants is the number of records written by the last successful run
	Participants int `json:"participants,omitempty"`

	// Locked is the number of locked participants after the last successful run
	Locked int `json:"locked,omitempty"`

	// Violations is the number of ordering violations the last run corrected
	Violations int `json:"violations,omitempty"`
}

// Copy returns a deep copy of the status
func (s *SyncStatus) Copy() *SyncStatus {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastAttempt != nil {
		t := *s.LastAttempt
		c.LastAttempt = &t
	}
	if s.LastSyncTime != nil {
		t := *s.LastSyncTime
		c.LastSyncTime = &t
	}
	return &c
}
