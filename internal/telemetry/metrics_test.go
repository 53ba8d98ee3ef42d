package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader sdkmetric.Reader, scopeName string) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != scopeName {
			continue
		}
		for _, m := range scope.Metrics {
			found[m.Name] = m
		}
	}
	return found
}

func TestNewLeaderboardMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewLeaderboardMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewLeaderboardMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.participants)
		assert.NotNil(t, metrics.locked)
	})
}

func TestLeaderboardMetrics_RecordParticipants(t *testing.T) {
	t.Parallel()

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *LeaderboardMetrics
		// Should not panic
		metrics.RecordParticipants(context.Background(), 10, 2)
	})

	t.Run("records gauges", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewLeaderboardMetrics(mp)
		require.NoError(t, err)

		metrics.RecordParticipants(context.Background(), 42, 7)

		found := collect(t, reader, LeaderboardMetricsMeterName)
		require.Contains(t, found, "leaderboard_participants")
		require.Contains(t, found, "leaderboard_locked_participants")

		gauge, ok := found["leaderboard_locked_participants"].Data.(metricdata.Gauge[int64])
		require.True(t, ok)
		require.Len(t, gauge.DataPoints, 1)
		assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
	})
}

func TestNewSyncMetrics(t *testing.T) {
	t.Parallel()

	metrics, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err = NewSyncMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.NotNil(t, metrics.syncDuration)
	assert.NotNil(t, metrics.syncTotal)
	assert.NotNil(t, metrics.violations)
}

func TestSyncMetrics_RecordSync(t *testing.T) {
	t.Parallel()

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *SyncMetrics
		// Should not panic
		metrics.RecordSync(context.Background(), 5*time.Second, SyncResultSuccess, "periodic")
		metrics.RecordViolations(context.Background(), 3)
	})

	t.Run("records duration in seconds and counts runs", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewSyncMetrics(mp)
		require.NoError(t, err)

		ctx := context.Background()
		metrics.RecordSync(ctx, 1500*time.Millisecond, SyncResultSuccess, "manual")
		metrics.RecordSync(ctx, time.Second, SyncResultSkipped, "periodic")
		metrics.RecordViolations(ctx, 2)
		metrics.RecordViolations(ctx, 0)

		found := collect(t, reader, SyncMetricsMeterName)

		hist, ok := found["leaderboard_sync_duration_seconds"].Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected histogram data type")
		require.Len(t, hist.DataPoints, 1)
		assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 0.001)

		total, ok := found["leaderboard_sync_total"].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		assert.Len(t, total.DataPoints, 2)

		violations, ok := found["leaderboard_violations_total"].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, violations.DataPoints, 1)
		assert.Equal(t, int64(2), violations.DataPoints[0].Value)
	})
}
