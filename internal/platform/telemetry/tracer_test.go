package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mfgverify/internal/platform/config"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(context.Background(), config.TracingConfig{}, "test",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := tp.Tracer("x").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
}

func TestNewProvider_Sampling(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()

	never := newProvider(resource.Empty(), sdktrace.WithSyncer(exporter), 0)
	_, span := never.Tracer("x").Start(context.Background(), "dropped")
	span.End()
	assert.Empty(t, exporter.GetSpans())

	always := newProvider(resource.Empty(), sdktrace.WithSyncer(exporter), 1)
	_, span = always.Tracer("x").Start(context.Background(), "kept")
	span.End()
	require.Len(t, exporter.GetSpans(), 1)
	assert.Equal(t, "kept", exporter.GetSpans()[0].Name)
}
