package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())

	var tracing *TracingConfig
	assert.Equal(t, DefaultSampling, tracing.GetSampling())

	var metrics *MetricsConfig
	assert.Equal(t, ExporterOTLP, metrics.GetExporter())

	cfg = &Config{ServiceName: "study-jam-board", ServiceVersion: "1.4.0", Endpoint: "otel:4318"}
	assert.Equal(t, "study-jam-board", cfg.GetServiceName())
	assert.Equal(t, "1.4.0", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
}

func TestConfig_FromYAML(t *testing.T) {
	t.Parallel()

	doc := `
enabled: true
serviceName: leaderboard-sync
endpoint: collector:4318
insecure: true
tracing:
  enabled: true
  sampling: 0.25
metrics:
  enabled: true
  exporter: both
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.TracingEnabled())
	assert.True(t, cfg.MetricsEnabled())
	assert.Equal(t, 0.25, cfg.Tracing.GetSampling())
	assert.True(t, cfg.Metrics.UsesOTLP())
	assert.True(t, cfg.Metrics.UsesPrometheus())
	assert.True(t, cfg.Insecure)
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		tracing bool
		metrics bool
	}{
		{name: "nil", cfg: nil},
		{name: "globally disabled", cfg: &Config{
			Tracing: &TracingConfig{Enabled: true},
			Metrics: &MetricsConfig{Enabled: true},
		}},
		{name: "no sections", cfg: &Config{Enabled: true}},
		{name: "tracing only", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true},
			Metrics: &MetricsConfig{Enabled: false},
		}, tracing: true},
		{name: "metrics only", cfg: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true},
		}, metrics: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.tracing, tt.cfg.TracingEnabled())
			assert.Equal(t, tt.metrics, tt.cfg.MetricsEnabled())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           *Config
		errorContains []string
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled config is not inspected", cfg: &Config{
			Tracing: &TracingConfig{Enabled: true, Sampling: floatPtr(7)},
		}},
		{name: "full sampling", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: floatPtr(1.0)},
		}},
		{name: "sampling ignored when tracing is off", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: false, Sampling: floatPtr(-1)},
		}},
		{name: "zero sampling", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: floatPtr(0)},
		}, errorContains: []string{"tracing: sampling must be greater than 0.0"}},
		{name: "prometheus exporter", cfg: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
		}},
		{name: "both sections invalid", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: floatPtr(2)},
			Metrics: &MetricsConfig{Enabled: true, Exporter: "graphite"},
		}, errorContains: []string{"tracing: sampling", `metrics: exporter must be one of`, `"graphite"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if len(tt.errorContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.errorContains {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestMetricsConfig_Exporters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		exporter   string
		otlp       bool
		prometheus bool
	}{
		{exporter: "", otlp: true},
		{exporter: ExporterOTLP, otlp: true},
		{exporter: ExporterPrometheus, prometheus: true},
		{exporter: ExporterBoth, otlp: true, prometheus: true},
	}

	for _, tt := range tests {
		cfg := &MetricsConfig{Enabled: true, Exporter: tt.exporter}
		assert.Equal(t, tt.otlp, cfg.UsesOTLP(), tt.exporter)
		assert.Equal(t, tt.prometheus, cfg.UsesPrometheus(), tt.exporter)
	}
}
