package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func floatPtr(f float64) *float64 {
	return &f
}

// collectorEndpoint starts a stand-in OTLP collector that accepts every export
func collectorEndpoint(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		config        func(endpoint string) *Config
		sdkTracer     bool
		sdkMeter      bool
		scrapeHandler bool
		errorContains string
	}{
		{
			name:   "nil config is no-op",
			config: func(string) *Config { return nil },
		},
		{
			name: "disabled telemetry ignores its sections",
			config: func(string) *Config {
				return &Config{
					Tracing: &TracingConfig{Enabled: true},
					Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
				}
			},
		},
		{
			name: "enabled without sections is no-op",
			config: func(string) *Config {
				return &Config{Enabled: true}
			},
		},
		{
			name: "out of range sampling is rejected",
			config: func(string) *Config {
				return &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: floatPtr(1.5)}}
			},
			errorContains: "invalid telemetry configuration",
		},
		{
			name: "unknown exporter is rejected",
			config: func(string) *Config {
				return &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"}}
			},
			errorContains: "exporter must be one of",
		},
		{
			name: "prometheus only",
			config: func(string) *Config {
				return &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus}}
			},
			sdkMeter:      true,
			scrapeHandler: true,
		},
		{
			name: "tracing and both metric exporters against a collector",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Tracing:  &TracingConfig{Enabled: true, Sampling: floatPtr(1.0)},
					Metrics:  &MetricsConfig{Enabled: true, Exporter: ExporterBoth},
				}
			},
			sdkTracer:     true,
			sdkMeter:      true,
			scrapeHandler: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tel, err := New(ctx, tt.config(collectorEndpoint(t)))
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)

			if tt.sdkTracer {
				assert.IsType(t, &sdktrace.TracerProvider{}, tel.TracerProvider())
			} else {
				assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			}
			if tt.sdkMeter {
				assert.IsType(t, &sdkmetric.MeterProvider{}, tel.MeterProvider())
			} else {
				assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
			}
			assert.Equal(t, tt.scrapeHandler, tel.MetricsHandler() != nil)

			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestTelemetry_ScrapesReconciliationMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tel, err := New(ctx, &Config{
		Enabled: true,
		Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	boardMetrics, err := NewLeaderboardMetrics(tel.MeterProvider())
	require.NoError(t, err)
	boardMetrics.RecordParticipants(ctx, 42, 7)

	syncMetrics, err := NewSyncMetrics(tel.MeterProvider())
	require.NoError(t, err)
	syncMetrics.RecordSync(ctx, 2*time.Second, SyncResultSuccess, "manual")

	rr := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "leaderboard_participants")
	assert.Contains(t, body, "leaderboard_locked_participants")
	assert.Contains(t, body, "leaderboard_sync_total")
}

func TestTelemetry_MetricsHandlerOnNil(t *testing.T) {
	t.Parallel()

	var tel *Telemetry
	assert.Nil(t, tel.MetricsHandler())
}

func TestNewMeterProvider_RegistersWithGivenRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	mp, err := NewMeterProvider(ctx, &Config{
		Enabled: true,
		Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
	}, reg)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	t.Cleanup(func() { _ = sdkMP.Shutdown(ctx) })

	syncMetrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)
	syncMetrics.RecordViolations(ctx, 3)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "leaderboard_violations_total")
}

func TestNewTracerProvider_DisabledTracing(t *testing.T) {
	t.Parallel()

	for _, cfg := range []*Config{
		nil,
		{Enabled: true},
		{Enabled: true, Tracing: &TracingConfig{Enabled: false}},
		{Enabled: false, Tracing: &TracingConfig{Enabled: true}},
	} {
		tp, err := NewTracerProvider(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, tracenoop.TracerProvider{}, tp)
	}
}
