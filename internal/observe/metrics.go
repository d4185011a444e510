// Package observe provides application-wide observability primitives for
// tableagent: OpenTelemetry metrics, distributed tracing and structured
// logging tied to the active span.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint while a run is in progress. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tableagent metrics.
const meterName = "github.com/kekechen123/Wide-search-data-automatic-generation-agent"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// LLMDuration tracks gateway round-trip latency. Use with attribute:
	//   attribute.String("backend", ...)
	LLMDuration metric.Float64Histogram

	// ToolDuration tracks tool dispatch latency. Use with attribute:
	//   attribute.String("tool", ...)
	ToolDuration metric.Float64Histogram

	// --- Counters ---

	// Rounds counts completed agent rounds. Use with attribute:
	//   attribute.String("type", "tool_call"|"conversation_only")
	Rounds metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// Runs counts finished agent runs by terminal state. Use with attribute:
	//   attribute.String("state", ...)
	Runs metric.Int64Counter

	// --- Error counters ---

	// LLMErrors counts failed backend requests. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("kind", ...)
	LLMErrors metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). LLM calls
// on reasoning models routinely take tens of seconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("tableagent.llm.duration",
		metric.WithDescription("Latency of LLM completion requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("tableagent.tool.duration",
		metric.WithDescription("Latency of tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Rounds, err = m.Int64Counter("tableagent.rounds",
		metric.WithDescription("Total agent rounds by round type."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("tableagent.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("tableagent.runs",
		metric.WithDescription("Total agent runs by terminal state."),
	); err != nil {
		return nil, err
	}

	if met.LLMErrors, err = m.Int64Counter("tableagent.llm.errors",
		metric.WithDescription("Total failed LLM requests by backend and kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall records a tool call counter increment and its latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, seconds float64) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
	m.ToolDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordRound records one finished agent round.
func (m *Metrics) RecordRound(ctx context.Context, roundType string) {
	m.Rounds.Add(ctx, 1, metric.WithAttributes(attribute.String("type", roundType)))
}

// RecordRun records a finished agent run.
func (m *Metrics) RecordRun(ctx context.Context, state string) {
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordLLMError records a failed backend request.
func (m *Metrics) RecordLLMError(ctx context.Context, backend, kind string) {
	m.LLMErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("kind", kind),
		),
	)
}
