package tool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/observe"
)

// Dispatcher resolves tool calls against a [Registry].
type Dispatcher struct {
	registry *Registry
	metrics  *observe.Metrics
}

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithDispatchMetrics overrides the metrics sink. Default: [observe.DefaultMetrics].
func WithDispatchMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a Dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: reg}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// NormalizeArguments converts a model-supplied argument payload into a JSON
// object. A map is used as-is. A string is decoded and used only when it
// decodes to an object. Anything else yields an empty map. The result is never
// nil.
func NormalizeArguments(arguments any) map[string]any {
	switch v := arguments.(type) {
	case map[string]any:
		if v == nil {
			return map[string]any{}
		}
		return v
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil && m != nil {
			return m
		}
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err == nil && m != nil {
			return m
		}
	}
	return map[string]any{}
}

// Dispatch runs the named tool with the given arguments. It never returns an
// error and never panics: every failure is reported as a Result with status
// "error" whose message names the offending input.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, arguments any) (res Result) {
	ctx, span := observe.StartSpan(ctx, "tool.dispatch")
	span.SetAttributes(attribute.String("tool.name", name))
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.String("tool.status", string(res.Status)))
		var spanErr error
		if res.Status == StatusError {
			spanErr = errors.New(res.Message)
		}
		observe.EndSpan(span, spanErr)
		d.metrics.RecordToolCall(ctx, name, string(res.Status), time.Since(start).Seconds())
	}()

	t, ok := d.registry.Lookup(name)
	if !ok {
		return Failuref("tool not found: %s", name)
	}

	args := NormalizeArguments(arguments)
	if err := d.registry.validate(name, args); err != nil {
		return Failure(err.Error())
	}
	return d.invoke(ctx, t, args)
}

func (d *Dispatcher) invoke(ctx context.Context, t Tool, args map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			observe.Logger(ctx).Error("tool panicked", "tool", t.Name(), "panic", r)
			res = Failuref("tool %s failed: %v", t.Name(), r)
		}
	}()

	res, err := t.Handler(ctx, args)
	if err != nil {
		return Failure(err.Error())
	}
	if res.Status == "" {
		res.Status = StatusSuccess
	}
	return res
}
