// Package observability exports matching metrics through OpenTelemetry with a
// Prometheus reader.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/spigell/matchmaker/internal/match"
)

type Metrics struct {
	registry      *promclient.Registry
	meterProvider *metric.MeterProvider

	scores        otelmetric.Int64Counter
	scoreDuration otelmetric.Float64Histogram
	intros        otelmetric.Int64Counter
	runs          otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	candidates    otelmetric.Int64Histogram
	retained      otelmetric.Int64Histogram
}

// New registers the instruments on a private registry served by Handler.
func New(serviceName string) (*Metrics, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	m := &Metrics{registry: registry, meterProvider: provider}

	if m.scores, err = meter.Int64Counter(
		"matchmaker.scores",
		otelmetric.WithDescription("Compatibility scores resolved, by source and failure kind"),
	); err != nil {
		return nil, err
	}

	if m.scoreDuration, err = meter.Float64Histogram(
		"matchmaker.score.duration",
		otelmetric.WithDescription("Time to resolve one compatibility score"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.intros, err = meter.Int64Counter(
		"matchmaker.intros",
		otelmetric.WithDescription("Intros generated, by source"),
	); err != nil {
		return nil, err
	}

	if m.runs, err = meter.Int64Counter(
		"matchmaker.runs",
		otelmetric.WithDescription("Suggestion runs, by outcome"),
	); err != nil {
		return nil, err
	}

	if m.runDuration, err = meter.Float64Histogram(
		"matchmaker.run.duration",
		otelmetric.WithDescription("Suggestion run duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.candidates, err = meter.Int64Histogram(
		"matchmaker.run.candidates",
		otelmetric.WithDescription("Candidates selected per run"),
	); err != nil {
		return nil, err
	}

	if m.retained, err = meter.Int64Histogram(
		"matchmaker.run.retained",
		otelmetric.WithDescription("Suggestions retained per run"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) ObserveScore(ctx context.Context, source match.Source, failure string, elapsed time.Duration) {
	if failure == "" {
		failure = "none"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("failure", failure),
	)
	m.scores.Add(ctx, 1, attrs)
	m.scoreDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func (m *Metrics) ObserveIntro(ctx context.Context, fallback bool, _ time.Duration) {
	source := match.SourceExternal
	if fallback {
		source = match.SourceFallback
	}
	m.intros.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("source", string(source))))
}

func (m *Metrics) ObserveRun(ctx context.Context, outcome string, candidates, retained int, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	if outcome == "ok" {
		m.candidates.Record(ctx, int64(candidates))
		m.retained.Record(ctx, int64(retained))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() promclient.Gatherer {
	return m.registry
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.meterProvider.Shutdown(ctx)
}
