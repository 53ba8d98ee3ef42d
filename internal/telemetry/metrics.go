package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// LeaderboardMetricsMeterName is the name used for the leaderboard metrics meter
	LeaderboardMetricsMeterName = "github.com/gdgc-dbit/leaderboard-sync/leaderboard"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/gdgc-dbit/leaderboard-sync/sync"
)

// Sync results recorded on leaderboard_sync_total
const (
	SyncResultSuccess = "success"
	SyncResultFailed  = "failed"
	SyncResultSkipped = "skipped"
)

// LeaderboardMetrics holds the OpenTelemetry instruments for the leaderboard contents
type LeaderboardMetrics struct {
	participants metric.Int64Gauge
	locked       metric.Int64Gauge
}

// NewLeaderboardMetrics creates a new LeaderboardMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLeaderboardMetrics(provider metric.MeterProvider) (*LeaderboardMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(LeaderboardMetricsMeterName)

	participants, err := meter.Int64Gauge(
		"leaderboard_participants",
		metric.WithDescription("Number of participants written by the last reconciliation"),
		metric.WithUnit("{participant}"),
	)
	if err != nil {
		return nil, err
	}

	locked, err := meter.Int64Gauge(
		"leaderboard_locked_participants",
		metric.WithDescription("Number of participants whose rank is locked"),
		metric.WithUnit("{participant}"),
	)
	if err != nil {
		return nil, err
	}

	return &LeaderboardMetrics{
		participants: participants,
		locked:       locked,
	}, nil
}

// RecordParticipants records the participant and locked counts after a run
func (m *LeaderboardMetrics) RecordParticipants(ctx context.Context, total, locked int64) {
	if m == nil || m.participants == nil {
		return
	}

	m.participants.Record(ctx, total)
	m.locked.Record(ctx, locked)
}

// SyncMetrics holds the OpenTelemetry instruments for reconciliation runs
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	syncTotal    metric.Int64Counter
	violations   metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"leaderboard_sync_duration_seconds",
		metric.WithDescription("Duration of reconciliation runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	syncTotal, err := meter.Int64Counter(
		"leaderboard_sync_total",
		metric.WithDescription("Number of reconciliation runs by result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	violations, err := meter.Int64Counter(
		"leaderboard_violations_total",
		metric.WithDescription("Number of ordering violations detected and corrected"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		syncTotal:    syncTotal,
		violations:   violations,
	}, nil
}

// RecordSync records one run: its duration (unless skipped) and its result
func (m *SyncMetrics) RecordSync(ctx context.Context, duration time.Duration, result, trigger string) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("trigger", trigger),
	)

	m.syncTotal.Add(ctx, 1, attrs)
	if result != SyncResultSkipped {
		m.syncDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordViolations adds the number of violations found by a run
func (m *SyncMetrics) RecordViolations(ctx context.Context, count int) {
	if m == nil || m.violations == nil || count <= 0 {
		return
	}
	m.violations.Add(ctx, int64(count))
}
