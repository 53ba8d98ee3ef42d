// Package leaderboard defines the participant and record types shared by the
// snapshot sources, the reconciliation engine, the stores and the reader.
package leaderboard

import (
	"encoding/json"
	"fmt"
	"time"
)

// TotalPaths is the number of learning paths a participant has to complete to finish.
const TotalPaths = 19

// ArcadeStatus is the tri-state arcade games flag reported by the snapshot
type ArcadeStatus string

const (
	// ArcadeUnknown means the snapshot cell was missing or unrecognised
	ArcadeUnknown ArcadeStatus = "Unknown"

	// ArcadeYes means the participant completed the arcade games
	ArcadeYes ArcadeStatus = "Yes"

	// ArcadeNo means the participant did not complete the arcade games
	ArcadeNo ArcadeStatus = "No"
)

// Badge returns the short label used in tables and the dashboard.
func (a ArcadeStatus) Badge() string {
	switch a {
	case ArcadeYes:
		return "Yes"
	case ArcadeNo:
		return "No"
	default:
		return "-"
	}
}

// ParseArcadeStatus parses a stored arcade status. Unrecognised values map to ArcadeUnknown.
func ParseArcadeStatus(s string) ArcadeStatus {
	switch ArcadeStatus(s) {
	case ArcadeYes:
		return ArcadeYes
	case ArcadeNo:
		return ArcadeNo
	default:
		return ArcadeUnknown
	}
}

// UnmarshalJSON accepts any string and normalises it with ParseArcadeStatus.
func (a *ArcadeStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("arcade status must be a string: %w", err)
	}
	*a = ParseArcadeStatus(s)
	return nil
}

// Participant is one canonical snapshot row
type Participant struct {
	// Name is the identity key joining the snapshot with persisted state
	Name string `json:"name"`

	// CompletedPaths is the progress, 0..TotalPaths
	CompletedPaths int `json:"completedPaths"`

	// TotalPaths is always TotalPaths; carried so that records are self-describing
	TotalPaths int `json:"totalPaths"`

	ArcadeGames        ArcadeStatus `json:"arcadeGames"`
	EligibleForGoodies bool         `json:"eligibleForGoodies"`

	// OriginalIndex is the position in the snapshot, used as the final tiebreak
	OriginalIndex int `json:"originalIndex"`
}

// Finished reports whether the participant has completed every path.
func (p Participant) Finished() bool {
	return p.CompletedPaths == TotalPaths
}

// PersistedRecord is the stored leaderboard entry for one participant.
// Every field is written on every reconciliation run.
type PersistedRecord struct {
	Name               string       `json:"name"`
	Rank               int          `json:"rank"`
	CompletedPaths     int          `json:"completedPaths"`
	TotalPaths         int          `json:"totalPaths"`
	ArcadeGames        ArcadeStatus `json:"arcadeGames"`
	EligibleForGoodies bool         `json:"eligibleForGoodies"`
	Locked             bool         `json:"locked"`
	LastCompletedAt    *time.Time   `json:"lastCompletedAt,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Finished reports whether the stored progress equals TotalPaths.
func (r PersistedRecord) Finished() bool {
	return r.CompletedPaths == TotalPaths
}

// RankedParticipant is a snapshot participant after it has been joined with
// its prior record and placed in the final ordering.
type RankedParticipant struct {
	Participant

	// Rank is position + 1 in the final ordering
	Rank int `json:"rank"`

	// Locked is the lock flag for this run, prior lock OR finished
	Locked bool `json:"locked"`

	// PriorRank is the rank from the previous run, 0 when the participant is new
	PriorRank int `json:"priorRank,omitempty"`

	// PriorLastCompletedAt is carried from the prior record
	PriorLastCompletedAt *time.Time `json:"priorLastCompletedAt,omitempty"`
}

// HasPriorRank reports whether the participant appeared in a previous run.
func (r RankedParticipant) HasPriorRank() bool {
	return r.PriorRank > 0
}

// Index builds the name keyed lookup of prior records used for the join.
// When names repeat the last record wins.
func Index(records []PersistedRecord) map[string]PersistedRecord {
	idx := make(map[string]PersistedRecord, len(records))
	for _, r := range records {
		idx[r.Name] = r
	}
	return idx
}
