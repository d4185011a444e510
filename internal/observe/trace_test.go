package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestTracerProvider returns a TracerProvider with an in-memory exporter
// for inspecting recorded spans.
func newTestTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exp
}

// useGlobalTracerProvider installs tp as the global provider for the test.
func useGlobalTracerProvider(t *testing.T, tp *sdktrace.TracerProvider) {
	t.Helper()
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
}

// captureDefaultLogger redirects the default slog logger into a buffer.
func captureDefaultLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestCorrelationID_EmptyByDefault(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
}

func TestCorrelationID_ReturnsTraceID(t *testing.T) {
	tp, _ := newTestTracerProvider(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	cid := CorrelationID(ctx)
	require.Len(t, cid, 32)
	assert.Regexp(t, "^[0-9a-f]+$", cid)
}

func TestStartSpan_CreatesSpan(t *testing.T) {
	tp, exp := newTestTracerProvider(t)
	useGlobalTracerProvider(t, tp)

	ctx, span := StartSpan(context.Background(), "agent.round")
	assert.NotEmpty(t, CorrelationID(ctx))

	span.End()
	spans := exp.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "agent.round", spans[0].Name)
}

func TestEndSpan_RecordsError(t *testing.T) {
	tp, exp := newTestTracerProvider(t)
	useGlobalTracerProvider(t, tp)

	_, span := StartSpan(context.Background(), "tool.dispatch")
	EndSpan(span, errors.New("file not found: a.csv"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "file not found: a.csv", spans[0].Status.Description)
	assert.NotEmpty(t, spans[0].Events, "RecordError should add an exception event")
}

func TestEndSpan_NilError(t *testing.T) {
	tp, exp := newTestTracerProvider(t)
	useGlobalTracerProvider(t, tp)

	_, span := StartSpan(context.Background(), "tool.dispatch")
	EndSpan(span, nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestCorrelationID_Unique(t *testing.T) {
	tp, _ := newTestTracerProvider(t)
	tracer := tp.Tracer("test")

	ids := make(map[string]struct{}, 100)
	for range 100 {
		ctx, span := tracer.Start(context.Background(), "unique-test")
		cid := CorrelationID(ctx)
		span.End()
		_, dup := ids[cid]
		require.False(t, dup, "duplicate correlation ID: %s", cid)
		ids[cid] = struct{}{}
	}
}

func TestLogger_IncludesTraceID(t *testing.T) {
	tp, _ := newTestTracerProvider(t)
	buf := captureDefaultLogger(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "log-test")
	defer span.End()

	Logger(ctx).Info("test message")

	assert.Contains(t, buf.String(), "trace_id=")
	assert.Contains(t, buf.String(), "span_id=")
}

func TestLogger_NoSpan(t *testing.T) {
	buf := captureDefaultLogger(t)

	Logger(context.Background()).Info("test message")

	assert.NotContains(t, buf.String(), "trace_id")
}
