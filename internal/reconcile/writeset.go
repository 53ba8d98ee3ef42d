package reconcile

import (
	"time"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// BuildWriteSet turns the final ordering into full records stamped with now.
//
// lastCompletedAt is set to now only for a participant that finishes in this
// run, did not finish in the prior run and has no completion time yet.
// Otherwise the prior value is carried forward unchanged.
func BuildWriteSet(
	final []leaderboard.RankedParticipant,
	prior map[string]leaderboard.PersistedRecord,
	now time.Time,
) []leaderboard.PersistedRecord {
	writes := make([]leaderboard.PersistedRecord, 0, len(final))
	for _, p := range final {
		var completedAt *time.Time
		if prev, ok := prior[p.Name]; ok && prev.LastCompletedAt != nil {
			t := *prev.LastCompletedAt
			completedAt = &t
		}
		if completedAt == nil && newlyFinished(p.Participant, prior) {
			t := now
			completedAt = &t
		}

		writes = append(writes, leaderboard.PersistedRecord{
			Name:               p.Name,
			Rank:               p.Rank,
			CompletedPaths:     p.CompletedPaths,
			TotalPaths:         leaderboard.TotalPaths,
			ArcadeGames:        p.ArcadeGames,
			EligibleForGoodies: p.EligibleForGoodies,
			Locked:             p.Locked,
			LastCompletedAt:    completedAt,
			UpdatedAt:          now,
		})
	}
	return writes
}

func newlyFinished(p leaderboard.Participant, prior map[string]leaderboard.PersistedRecord) bool {
	if !p.Finished() {
		return false
	}
	prev, ok := prior[p.Name]
	return !ok || !prev.Finished()
}

// stampedIn reports whether rec received its first completion time in the run at now.
func stampedIn(rec leaderboard.PersistedRecord, prior map[string]leaderboard.PersistedRecord, now time.Time) bool {
	if rec.LastCompletedAt == nil || !rec.LastCompletedAt.Equal(now) {
		return false
	}
	prev, ok := prior[rec.Name]
	return !ok || prev.LastCompletedAt == nil
}
