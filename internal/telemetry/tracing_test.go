package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestInitTracingDisabled(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "dev")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	restoreGlobals(t)

	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1.5}, "dev")
	require.ErrorContains(t, err, "sample rate")

	_, err = InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRate: 1}, "dev")
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "nko-directory-test",
		SampleRate:  1,
	}, "1.0.0", WithStdoutWriter(&buf))
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "list-listings")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, buf.String(), "list-listings")
	require.Contains(t, buf.String(), "nko-directory-test")
}

func TestInitTracingNoneExporter(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 0.5}, "dev")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	require.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	require.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	require.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
