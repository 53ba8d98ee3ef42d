package reconcile

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// ViolationPolicy selects which pairs the violation check considers
type ViolationPolicy string

const (
	// PolicyExemptLocked only checks pairs where both participants are unlocked.
	// A locked finisher keeps its position even when its reported progress regressed.
	PolicyExemptLocked ViolationPolicy = "exemptLocked"

	// PolicyStrict checks every pair across the whole ordering
	PolicyStrict ViolationPolicy = "strict"
)

// Valid reports whether p is a known policy.
func (p ViolationPolicy) Valid() bool {
	return p == PolicyExemptLocked || p == PolicyStrict
}

// Violation records a participant ranked above someone with strictly more progress
type Violation struct {
	Rank           int    `json:"rank"`
	Name           string `json:"name"`
	CompletedPaths int    `json:"completedPaths"`

	OutrankedByRank  int    `json:"outrankedByRank"`
	OutrankedBy      string `json:"outrankedBy"`
	OutrankedByPaths int    `json:"outrankedByPaths"`
}

func (v Violation) String() string {
	return fmt.Sprintf("#%d %s (%d) ranks above #%d %s (%d)",
		v.Rank, v.Name, v.CompletedPaths, v.OutrankedByRank, v.OutrankedBy, v.OutrankedByPaths)
}

// FindViolations scans ordered for progress inversions. For every position it
// reports at most one violation, naming the first later participant with more progress.
func FindViolations(ordered []leaderboard.RankedParticipant, policy ViolationPolicy) []Violation {
	var violations []Violation
	for i := range ordered {
		hi := ordered[i]
		if policy != PolicyStrict && hi.Locked {
			continue
		}
		for j := i + 1; j < len(ordered); j++ {
			lo := ordered[j]
			if policy != PolicyStrict && lo.Locked {
				continue
			}
			if lo.CompletedPaths > hi.CompletedPaths {
				violations = append(violations, Violation{
					Rank:             hi.Rank,
					Name:             hi.Name,
					CompletedPaths:   hi.CompletedPaths,
					OutrankedByRank:  lo.Rank,
					OutrankedBy:      lo.Name,
					OutrankedByPaths: lo.CompletedPaths,
				})
				break
			}
		}
	}
	return violations
}

// Correct returns a copy of ordered in flat progress order with ranks reassigned.
// Lock flags are kept; only positions change.
func Correct(ordered []leaderboard.RankedParticipant) []leaderboard.RankedParticipant {
	flat := slices.Clone(ordered)
	slices.SortFunc(flat, func(a, b leaderboard.RankedParticipant) int {
		if c := cmp.Compare(b.CompletedPaths, a.CompletedPaths); c != 0 {
			return c
		}
		if c := comparePriorRank(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.OriginalIndex, b.OriginalIndex)
	})
	assignRanks(flat)
	return flat
}
