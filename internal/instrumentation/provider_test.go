package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, config Config) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func prometheusConfig() Config {
	return Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider := newTestProvider(t, Config{ServiceName: "test-service", Enabled: false})

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.PrometheusHandler() != nil {
		t.Error("expected no prometheus handler when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a no-op tracer")
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	provider := newTestProvider(t, prometheusConfig())

	if !provider.Enabled() {
		t.Fatal("expected provider to be enabled")
	}

	ctx := context.Background()
	provider.Metrics().RecordAgentRun(ctx, "openai", StatusSuccess, "", 1, time.Second)

	handler := provider.PrometheusHandler()
	if handler == nil {
		t.Fatal("expected PrometheusHandler to be non-nil for prometheus exporter")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "agent_runs_total") {
		t.Errorf("expected agent_runs_total in scrape output, got:\n%s", body)
	}
}

func TestNewProvider_TwoPrometheusProviders(t *testing.T) {
	// Each provider registers on its own registry.
	newTestProvider(t, prometheusConfig())
	newTestProvider(t, prometheusConfig())
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	config := prometheusConfig()
	config.MetricsExporter = ExporterStdout
	config.TracingExporter = ExporterStdout

	provider := newTestProvider(t, config)
	if provider.PrometheusHandler() != nil {
		t.Error("expected PrometheusHandler to be nil for stdout exporter")
	}
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "invalid metrics exporter", mutate: func(c *Config) { c.MetricsExporter = "invalid" }},
		{name: "invalid tracing exporter", mutate: func(c *Config) { c.TracingExporter = "invalid" }},
		{name: "otlp tracing without endpoint", mutate: func(c *Config) { c.TracingExporter = ExporterOTLP }},
		{name: "otlp metrics without endpoint", mutate: func(c *Config) { c.MetricsExporter = ExporterOTLP }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := prometheusConfig()
			tt.mutate(&config)

			if _, err := NewProvider(context.Background(), config); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
