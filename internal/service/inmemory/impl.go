// Package inmemory provides a LeaderboardService that keeps a short-lived in-memory
// copy of the persisted records and serves every read from it.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
	"github.com/gdgc-dbit/leaderboard-sync/internal/otel"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/storage"
)

// DefaultCacheDuration is how long records read from the store are served before re-reading
const DefaultCacheDuration = 10 * time.Second

// ServiceTracerName is the name used for the reader service tracer
const ServiceTracerName = "github.com/gdgc-dbit/leaderboard-sync/service"

// leaderboardSvc implements the LeaderboardService interface
type leaderboardSvc struct {
	mu    sync.RWMutex // Protects records, newest, lastFetch
	store storage.Store

	// records are sorted by rank then name
	records   []leaderboard.PersistedRecord
	newest    time.Time
	lastFetch time.Time
	loaded    bool

	cacheDuration time.Duration
	now           func() time.Time
	tracer        trace.Tracer
}

var (
	_ service.LeaderboardService = (*leaderboardSvc)(nil)
	_ service.Invalidator        = (*leaderboardSvc)(nil)
)

// Option is a functional option for configuring the service
type Option func(*leaderboardSvc)

// WithCacheDuration sets a custom cache duration for store reads.
// Zero disables caching.
func WithCacheDuration(duration time.Duration) Option {
	return func(s *leaderboardSvc) {
		s.cacheDuration = duration
	}
}

// WithTracer sets the tracer used for service spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *leaderboardSvc) {
		s.tracer = tracer
	}
}

// WithClock overrides the time source used for cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *leaderboardSvc) {
		s.now = now
	}
}

// New creates a new leaderboard service reading from store.
// The first load happens lazily so that an empty or unreachable store does not
// prevent startup.
func New(store storage.Store, opts ...Option) (service.LeaderboardService, error) {
	if store == nil {
		return nil, fmt.Errorf("leaderboard store is required")
	}

	s := &leaderboardSvc{
		store:         store,
		cacheDuration: DefaultCacheDuration,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// loadRecordsLocked reads every record from the store. Caller must hold s.mu write lock.
func (s *leaderboardSvc) loadRecordsLocked(ctx context.Context) error {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read leaderboard records: %w", err)
	}

	records = slices.Clone(records)
	slices.SortFunc(records, func(a, b leaderboard.PersistedRecord) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), strings.Compare(a.Name, b.Name))
	})

	var newest time.Time
	for _, r := range records {
		if r.UpdatedAt.After(newest) {
			newest = r.UpdatedAt
		}
	}

	s.records = records
	s.newest = newest
	s.lastFetch = s.now()
	s.loaded = true

	slog.Debug("Loaded leaderboard records", "record_count", len(records))
	return nil
}

// refreshDataIfNeeded re-reads the store if the cache has expired.
// A failed refresh keeps serving the previous records when there are any.
func (s *leaderboardSvc) refreshDataIfNeeded(ctx context.Context) error {
	s.mu.RLock()
	needsRefresh := !s.loaded || s.now().Sub(s.lastFetch) >= s.cacheDuration
	hasData := s.loaded
	s.mu.RUnlock()

	if !needsRefresh {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock
	if s.loaded && s.now().Sub(s.lastFetch) < s.cacheDuration {
		return nil
	}
	if err := s.loadRecordsLocked(ctx); err != nil {
		if !hasData {
			return err
		}
		slog.Warn("Failed to refresh leaderboard records, serving cached copy", "error", err)
	}
	return nil
}

// Invalidate forces the next read to go to the store
func (s *leaderboardSvc) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch = time.Time{}
}

// entriesLocked returns every record as an Entry. Caller must hold s.mu read lock.
func (s *leaderboardSvc) entriesLocked() []service.Entry {
	out := make([]service.Entry, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, service.Entry{
			PersistedRecord: r,
			Badge:           r.ArcadeGames.Badge(),
			Stale:           r.UpdatedAt.Before(s.newest),
		})
	}
	return out
}

// CheckReadiness implements LeaderboardService.CheckReadiness
func (s *leaderboardSvc) CheckReadiness(ctx context.Context) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "leaderboard.CheckReadiness")
	defer span.End()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	if err := s.refreshDataIfNeeded(ctx); err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("leaderboard records not available: %w", err)
	}
	return nil
}

// ListEntries implements LeaderboardService.ListEntries
func (s *leaderboardSvc) ListEntries(ctx context.Context, opts ...service.Option) (*service.EntryList, error) {
	options := &service.ListOptions{Limit: service.DefaultLimit}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidOption, err)
		}
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "leaderboard.ListEntries",
		trace.WithAttributes(
			otel.AttrSearch.String(options.Search),
			otel.AttrIncludeStale.Bool(options.IncludeStale),
			otel.AttrPageSize.Int(options.Limit),
			otel.AttrHasCursor.Bool(options.Cursor != ""),
		))
	defer span.End()

	cursorRank, cursorName, err := service.DecodeCursor(options.Cursor)
	if err != nil {
		err = fmt.Errorf("%w: %v", service.ErrInvalidCursor, err)
		otel.RecordError(span, err)
		return nil, err
	}

	if err := s.refreshDataIfNeeded(ctx); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	s.mu.RLock()
	all := s.entriesLocked()
	s.mu.RUnlock()

	// a Caser is stateful, so each call gets its own
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(options.Search))
	filtered := make([]service.Entry, 0, len(all))
	for _, e := range all {
		if e.Stale && !options.IncludeStale {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(e.Name), needle) {
			continue
		}
		filtered = append(filtered, e)
	}

	start := 0
	if options.Cursor != "" {
		start = len(filtered)
		for i, e := range filtered {
			if e.Rank > cursorRank || (e.Rank == cursorRank && e.Name > cursorName) {
				start = i
				break
			}
		}
	}

	end := min(start+options.Limit, len(filtered))
	page := filtered[start:end]

	result := &service.EntryList{
		Entries: page,
		Total:   len(filtered),
	}
	if end < len(filtered) {
		last := page[len(page)-1]
		result.NextCursor = service.EncodeCursor(last.Rank, last.Name)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(page)))
	return result, nil
}

// GetEntry implements LeaderboardService.GetEntry
func (s *leaderboardSvc) GetEntry(ctx context.Context, name string) (*service.Entry, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "leaderboard.GetEntry",
		trace.WithAttributes(otel.AttrParticipantName.String(name)))
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, service.ErrEntryNotFound
	}

	if err := s.refreshDataIfNeeded(ctx); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entriesLocked() {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", service.ErrEntryNotFound, name)
}

// Stats implements LeaderboardService.Stats
func (s *leaderboardSvc) Stats(ctx context.Context) (*service.Stats, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "leaderboard.Stats")
	defer span.End()

	if err := s.refreshDataIfNeeded(ctx); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &service.Stats{}
	for _, e := range s.entriesLocked() {
		if e.Stale {
			stats.Stale++
			continue
		}
		stats.Participants++
		if e.Finished() {
			stats.Finished++
		}
		if e.EligibleForGoodies {
			stats.EligibleForGoodies++
		}
		if e.Locked {
			stats.Locked++
		}
	}
	if !s.newest.IsZero() {
		newest := s.newest
		stats.LastUpdated = &newest
	}
	return stats, nil
}
