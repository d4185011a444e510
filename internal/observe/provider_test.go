package observe

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitProvider_ExportsSpansWithServiceResource(t *testing.T) {
	origTP, origMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})

	var buf bytes.Buffer
	shutdown, err := InitProvider(context.Background(), ProviderConfig{
		ServiceName:    "tableagent",
		ServiceVersion: "v0.0.1-test",
		TraceWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := StartSpan(context.Background(), "agent.run")
	EndSpan(span, nil)

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "agent.run")
	assert.Contains(t, out, "service.name")
	assert.Contains(t, out, "tableagent")
	assert.Contains(t, out, "v0.0.1-test")
}

func TestInitProvider_DefaultServiceName(t *testing.T) {
	origTP, origMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})

	shutdown, err := InitProvider(context.Background(), ProviderConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
