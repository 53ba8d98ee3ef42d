package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
	"github.com/gdgc-dbit/leaderboard-sync/internal/otel"
	"github.com/gdgc-dbit/leaderboard-sync/internal/reconcile"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sources"
	"github.com/gdgc-dbit/leaderboard-sync/internal/status"
	"github.com/gdgc-dbit/leaderboard-sync/internal/storage"
)

// Result contains the result of a successful run
type Result struct {
	RunID         string        `json:"runId"`
	Hash          string        `json:"hash"`
	Participants  int           `json:"participants"`
	Locked        int           `json:"locked"`
	NewlyFinished int           `json:"newlyFinished"`
	Violations    int           `json:"violations"`
	Corrected     bool          `json:"corrected"`
	SkippedRows   int           `json:"skippedRows,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// ErrorKind classifies a failed run
type ErrorKind string

const (
	// KindSourceUnavailable means the snapshot could not be obtained
	KindSourceUnavailable ErrorKind = "SourceUnavailable"

	// KindEmptySnapshot means the snapshot held no participants
	KindEmptySnapshot ErrorKind = "EmptySnapshot"

	// KindStoreReadFailure means prior state could not be read
	KindStoreReadFailure ErrorKind = "StoreReadFailure"

	// KindStoreWriteFailure means the write-set could not be committed
	KindStoreWriteFailure ErrorKind = "StoreWriteFailure"

	// KindLeaseUnavailable means another run holds the store lease
	KindLeaseUnavailable ErrorKind = "LeaseUnavailable"
)

// Error is a failed run with its classification
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Manager manages reconciliation runs
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/gdgc-dbit/leaderboard-sync/internal/sync Manager
type Manager interface {
	// ShouldSync determines whether a run is needed
	ShouldSync(ctx context.Context, syncStatus *status.SyncStatus, manualSyncRequested bool) Reason

	// PerformSync executes one complete run
	PerformSync(ctx context.Context) (*Result, *Error)
}

// DataChangeDetector detects changes in source data
type DataChangeDetector interface {
	// IsDataChanged checks if the snapshot changed since the last successful run
	IsDataChanged(ctx context.Context, syncStatus *status.SyncStatus) (bool, error)
}

// AutomaticSyncChecker handles automatic sync timing logic
type AutomaticSyncChecker interface {
	// IsIntervalSyncNeeded checks if the sync interval has elapsed
	IsIntervalSyncNeeded(syncStatus *status.SyncStatus) (bool, error)
}

// DefaultSyncManager is the default implementation of Manager
type DefaultSyncManager struct {
	cfg                  *config.Config
	sourceHandlerFactory sources.SourceHandlerFactory
	store                storage.StoreLeaser
	engine               *reconcile.Engine
	dataChangeDetector   DataChangeDetector
	automaticSyncChecker AutomaticSyncChecker
	now                  func() time.Time
	tracer               trace.Tracer
}

// ManagerOption configures a DefaultSyncManager
type ManagerOption func(*DefaultSyncManager)

// WithClock overrides the time source used to stamp runs
func WithClock(now func() time.Time) ManagerOption {
	return func(m *DefaultSyncManager) {
		m.now = now
	}
}

// WithTracer sets the tracer used for run spans
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *DefaultSyncManager) {
		m.tracer = tracer
	}
}

// WithDataChangeDetector overrides the hash based change detector
func WithDataChangeDetector(d DataChangeDetector) ManagerOption {
	return func(m *DefaultSyncManager) {
		m.dataChangeDetector = d
	}
}

// WithAutomaticSyncChecker overrides the interval checker
func WithAutomaticSyncChecker(c AutomaticSyncChecker) ManagerOption {
	return func(m *DefaultSyncManager) {
		m.automaticSyncChecker = c
	}
}

// NewDefaultSyncManager creates a new DefaultSyncManager
func NewDefaultSyncManager(
	cfg *config.Config,
	sourceHandlerFactory sources.SourceHandlerFactory,
	store storage.StoreLeaser,
	opts ...ManagerOption,
) *DefaultSyncManager {
	m := &DefaultSyncManager{
		cfg:                  cfg,
		sourceHandlerFactory: sourceHandlerFactory,
		store:                store,
		engine: reconcile.NewEngine(
			reconcile.WithViolationPolicy(reconcile.ViolationPolicy(cfg.GetViolationCheck())),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dataChangeDetector == nil {
		m.dataChangeDetector = &DefaultDataChangeDetector{cfg: cfg, sourceHandlerFactory: sourceHandlerFactory}
	}
	if m.automaticSyncChecker == nil {
		m.automaticSyncChecker = &DefaultAutomaticSyncChecker{cfg: cfg, now: m.now}
	}
	return m
}

// ShouldSync determines whether a run is needed.
// Manual requests always run. Otherwise a run is needed when nothing has been
// synced yet, the last attempt failed, or the policy says the data is due.
func (s *DefaultSyncManager) ShouldSync(
	ctx context.Context,
	syncStatus *status.SyncStatus,
	manualSyncRequested bool,
) Reason {
	logger := loggerFrom(ctx)

	reason := s.decide(ctx, syncStatus, manualSyncRequested)
	logger.V(1).Info("ShouldSync", "manualSyncRequested", manualSyncRequested,
		"shouldSync", reason.ShouldSync(), "reason", reason.String())
	return reason
}

func (s *DefaultSyncManager) decide(
	ctx context.Context,
	syncStatus *status.SyncStatus,
	manualSyncRequested bool,
) Reason {
	logger := loggerFrom(ctx)

	if manualSyncRequested {
		return ReasonManual
	}
	if syncStatus == nil || syncStatus.LastSyncTime == nil {
		return ReasonNeverSynced
	}
	switch syncStatus.Phase {
	case status.SyncPhaseSyncing:
		return ReasonAlreadyInProgress
	case status.SyncPhaseFailed:
		return ReasonLastSyncFailed
	}

	if s.cfg.SyncPolicy != nil && s.cfg.SyncPolicy.OnlyOnChange {
		changed, err := s.dataChangeDetector.IsDataChanged(ctx, syncStatus)
		if err != nil {
			logger.Error(err, "Failed to determine if data has changed")
			return ReasonErrorCheckingChanges
		}
		if changed {
			return ReasonSourceDataChanged
		}
		return ReasonSourceUnchanged
	}

	elapsed, err := s.automaticSyncChecker.IsIntervalSyncNeeded(syncStatus)
	if err != nil {
		logger.Error(err, "Failed to determine if interval has elapsed")
		return ReasonErrorCheckingSyncNeed
	}
	if elapsed {
		return ReasonIntervalElapsed
	}
	return ReasonUpToDateWithPolicy
}

// loggerFrom returns the context logger, or one backed by the default slog
// handler when the caller installed none.
func loggerFrom(ctx context.Context) logr.Logger {
	if logger, err := logr.FromContext(ctx); err == nil {
		return logger
	}
	return logr.FromSlogHandler(slog.Default().Handler())
}

// PerformSync runs the full pipeline: lease, fetch, read prior, reconcile, write.
// Nothing is written unless every earlier step succeeded.
func (s *DefaultSyncManager) PerformSync(ctx context.Context) (result *Result, syncErr *Error) {
	start := s.now()
	runID := uuid.NewString()
	logger := loggerFrom(ctx).WithValues("runId", runID)
	ctx = logr.NewContext(ctx, logger)

	ctx, span := otel.StartSpan(ctx, s.tracer, "sync.PerformSync",
		trace.WithAttributes(
			otel.AttrRunID.String(runID),
			otel.AttrSourceType.String(s.cfg.Source.Type),
			otel.AttrViolationPolicy.String(string(s.engine.Policy())),
		))
	defer func() {
		if syncErr != nil {
			span.SetAttributes(attribute.String("sync.error_kind", string(syncErr.Kind)))
			otel.RecordError(span, syncErr)
		} else if result != nil {
			span.SetAttributes(otel.AttrResultCount.Int(result.Participants))
		}
		span.End()
	}()

	release, err := s.store.Acquire(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrLeaseHeld) {
			logger.Info("Another run holds the store lease")
		} else {
			logger.Error(err, "Failed to acquire store lease")
		}
		return nil, newError(KindLeaseUnavailable, err, "reconciliation already in progress")
	}
	defer release()

	fetchResult, syncErr := s.fetchSnapshot(ctx)
	if syncErr != nil {
		return nil, syncErr
	}

	prior, err := s.store.ListAll(ctx)
	if err != nil {
		logger.Error(err, "Failed to read persisted records")
		return nil, newError(KindStoreReadFailure, err, "failed to read persisted records")
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	outcome, err := s.engine.Run(ctx, fetchResult.Participants, leaderboard.Index(prior), now)
	if err != nil {
		if errors.Is(err, reconcile.ErrEmptySnapshot) {
			logger.Info("Snapshot has no participants, leaving store untouched", "rows", fetchResult.RowCount)
			return nil, newError(KindEmptySnapshot, err, "no participants in snapshot")
		}
		return nil, newError(KindSourceUnavailable, err, "failed to reconcile snapshot")
	}

	if err := s.store.BatchWrite(ctx, outcome.WriteSet); err != nil {
		logger.Error(err, "Failed to write leaderboard records", "records", len(outcome.WriteSet))
		return nil, newError(KindStoreWriteFailure, err, "failed to write leaderboard records")
	}

	result = &Result{
		RunID:         runID,
		Hash:          fetchResult.Hash,
		Participants:  len(outcome.Final),
		Locked:        outcome.Locked,
		NewlyFinished: outcome.NewlyFinished,
		Violations:    len(outcome.Violations),
		Corrected:     outcome.Corrected,
		SkippedRows:   fetchResult.Skipped,
		Duration:      s.now().Sub(start),
	}

	logger.Info("Leaderboard updated",
		"participants", result.Participants,
		"locked", result.Locked,
		"newlyFinished", result.NewlyFinished,
		"violations", result.Violations,
		"duration", result.Duration.String())

	return result, nil
}

// fetchSnapshot handles handler creation, validation and fetch
func (s *DefaultSyncManager) fetchSnapshot(ctx context.Context) (*sources.FetchResult, *Error) {
	logger := loggerFrom(ctx)
	src := &s.cfg.Source

	handler, err := s.sourceHandlerFactory.CreateHandler(src.Type)
	if err != nil {
		logger.Error(err, "Failed to create source handler")
		return nil, newError(KindSourceUnavailable, err, "failed to create source handler")
	}

	if err := handler.Validate(src); err != nil {
		logger.Error(err, "Source validation failed")
		return nil, newError(KindSourceUnavailable, err, "source validation failed")
	}

	fetchResult, err := handler.FetchSnapshot(ctx, src)
	if err != nil {
		logger.Error(err, "Fetch operation failed", "location", src.GetLocation())
		return nil, newError(KindSourceUnavailable, err, "failed to fetch snapshot")
	}

	logger.Info("Snapshot fetched",
		"participants", len(fetchResult.Participants),
		"rows", fetchResult.RowCount,
		"skipped", fetchResult.Skipped,
		"format", fetchResult.Format,
		"hash", fetchResult.Hash)
	for _, name := range fetchResult.Duplicates {
		logger.Info("Duplicate participant name, keeping first row", "name", name)
	}

	return fetchResult, nil
}
