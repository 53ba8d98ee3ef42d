// Package reconcile implements the leaderboard ranking engine.
//
// A run joins a fresh snapshot with the records persisted by the previous run,
// splits participants into locked finishers and unlocked participants, orders
// each partition, concatenates them and assigns contiguous ranks. The result is
// checked for progress inversions and, when one is found, replaced by a flat
// progress ordering. Finally a full write-set is built for the store.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// ErrEmptySnapshot is returned when a run is attempted with no participants
var ErrEmptySnapshot = errors.New("snapshot contains no participants")

// logWindow is how many entries from each end of the final ordering are logged
const logWindow = 8

// Engine runs reconciliation with a fixed violation policy
type Engine struct {
	policy ViolationPolicy
}

// Option configures an Engine
type Option func(*Engine)

// WithViolationPolicy sets how locked participants take part in the violation check
func WithViolationPolicy(p ViolationPolicy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// NewEngine creates an engine. The default policy exempts locked participants.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{policy: PolicyExemptLocked}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the violation policy in use.
func (e *Engine) Policy() ViolationPolicy {
	return e.policy
}

// Outcome is everything one run produced
type Outcome struct {
	// Final is the ordering that was written
	Final []leaderboard.RankedParticipant

	// Violations found in the partitioned ordering, empty when none
	Violations []Violation

	// Corrected is true when the flat fallback ordering replaced the partitioned one
	Corrected bool

	// WriteSet holds one full record per snapshot participant
	WriteSet []leaderboard.PersistedRecord

	Locked        int
	NewlyFinished int
}

// Run reconciles the snapshot against prior state and builds the write-set stamped with now.
func (e *Engine) Run(
	ctx context.Context,
	snapshot []leaderboard.Participant,
	prior map[string]leaderboard.PersistedRecord,
	now time.Time,
) (*Outcome, error) {
	logger := logr.FromContextOrDiscard(ctx).WithName("reconcile")
	// logr has no warn verbosity; slog-backed loggers keep the level
	warn := slog.New(logr.ToSlogHandler(logger)).With("logger", "reconcile")

	ordered, err := Reconcile(snapshot, prior)
	if err != nil {
		return nil, err
	}

	for _, p := range ordered {
		if p.Locked && !p.Finished() {
			warn.WarnContext(ctx, "locked participant reports less than full progress, keeping lock",
				"name", p.Name, "completedPaths", p.CompletedPaths, "priorRank", p.PriorRank)
		}
	}

	out := &Outcome{Final: ordered}
	out.Violations = FindViolations(ordered, e.policy)
	if len(out.Violations) > 0 {
		for _, v := range out.Violations {
			warn.WarnContext(ctx, "ordering violation", "violation", v.String())
		}
		out.Final = Correct(ordered)
		out.Corrected = true
		logger.Info("applied flat progress ordering", "order", summarize(out.Final))
	}

	out.WriteSet = BuildWriteSet(out.Final, prior, now)
	for _, p := range out.Final {
		if p.Locked {
			out.Locked++
		}
	}
	for _, rec := range out.WriteSet {
		if stampedIn(rec, prior, now) {
			out.NewlyFinished++
		}
	}

	logFinalOrder(logger, out.Final)
	logger.Info("reconciled leaderboard",
		"participants", len(out.Final),
		"locked", out.Locked,
		"newlyFinished", out.NewlyFinished,
		"violations", len(out.Violations))

	return out, nil
}

// Reconcile computes the lock-aware ordering of snapshot and assigns ranks 1..N.
func Reconcile(
	snapshot []leaderboard.Participant,
	prior map[string]leaderboard.PersistedRecord,
) ([]leaderboard.RankedParticipant, error) {
	if len(snapshot) == 0 {
		return nil, ErrEmptySnapshot
	}

	var locked, unlocked []leaderboard.RankedParticipant
	for _, p := range snapshot {
		rp := join(p, prior)
		if rp.Locked {
			locked = append(locked, rp)
		} else {
			unlocked = append(unlocked, rp)
		}
	}

	slices.SortFunc(locked, compareLocked)
	slices.SortFunc(unlocked, compareUnlocked)

	ordered := make([]leaderboard.RankedParticipant, 0, len(snapshot))
	ordered = append(ordered, locked...)
	ordered = append(ordered, unlocked...)
	assignRanks(ordered)

	return ordered, nil
}

// join carries prior rank, completion time and lock onto the snapshot participant.
func join(p leaderboard.Participant, prior map[string]leaderboard.PersistedRecord) leaderboard.RankedParticipant {
	rp := leaderboard.RankedParticipant{Participant: p}
	if prev, ok := prior[p.Name]; ok {
		rp.PriorRank = prev.Rank
		rp.PriorLastCompletedAt = prev.LastCompletedAt
		rp.Locked = prev.Locked
	}
	rp.Locked = rp.Locked || p.Finished()
	return rp
}

func compareLocked(a, b leaderboard.RankedParticipant) int {
	if c := comparePriorRank(a, b); c != 0 {
		return c
	}
	if c := compareCompletedAt(a.PriorLastCompletedAt, b.PriorLastCompletedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

func compareUnlocked(a, b leaderboard.RankedParticipant) int {
	if c := cmp.Compare(b.CompletedPaths, a.CompletedPaths); c != 0 {
		return c
	}
	if c := comparePriorRank(a, b); c != 0 {
		return c
	}
	return cmp.Compare(a.OriginalIndex, b.OriginalIndex)
}

// comparePriorRank orders by prior rank ascending with new participants last.
func comparePriorRank(a, b leaderboard.RankedParticipant) int {
	switch {
	case a.HasPriorRank() && b.HasPriorRank():
		return cmp.Compare(a.PriorRank, b.PriorRank)
	case a.HasPriorRank():
		return -1
	case b.HasPriorRank():
		return 1
	default:
		return 0
	}
}

// compareCompletedAt orders by completion time ascending with missing times last.
func compareCompletedAt(a, b *time.Time) int {
	switch {
	case a != nil && b != nil:
		return a.Compare(*b)
	case a != nil:
		return -1
	case b != nil:
		return 1
	default:
		return 0
	}
}

func assignRanks(ordered []leaderboard.RankedParticipant) {
	for i := range ordered {
		ordered[i].Rank = i + 1
	}
}

func logFinalOrder(logger logr.Logger, ordered []leaderboard.RankedParticipant) {
	debug := logger.V(1)
	if !debug.Enabled() {
		return
	}
	if len(ordered) <= 2*logWindow {
		debug.Info("final order", "entries", summarize(ordered))
		return
	}
	debug.Info("final order top", "entries", summarize(ordered[:logWindow]))
	debug.Info("final order bottom", "entries", summarize(ordered[len(ordered)-logWindow:]))
}

func summarize(ordered []leaderboard.RankedParticipant) []string {
	out := make([]string, 0, len(ordered))
	for _, p := range ordered {
		lock := ""
		if p.Locked {
			lock = " locked"
		}
		out = append(out, fmt.Sprintf("#%d %s %d/%d%s", p.Rank, p.Name, p.CompletedPaths, p.TotalPaths, lock))
	}
	return out
}
