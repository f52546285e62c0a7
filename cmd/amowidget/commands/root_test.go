package commands

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"amowidget/internal/archive"
	"amowidget/internal/components/telemetry"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type countingExporter struct {
	exported int
	shutdown bool
}

func (e *countingExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.exported += len(spans)
	return nil
}

func (e *countingExporter) Shutdown(context.Context) error {
	e.shutdown = true
	return nil
}

func TestExecuteFlushesTelemetryOnFailure(t *testing.T) {
	exporter := &countingExporter{}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otelRuntime = telemetry.Telemetry{TracerProvider: provider}
	t.Cleanup(func() {
		otelRuntime = telemetry.Telemetry{}
	})

	_, span := provider.Tracer("test").Start(context.Background(), "upload")
	span.End()

	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "missing.json5"),
		"inspect", filepath.Join(t.TempDir(), "missing.zip"),
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})

	err := execute(context.Background())
	require.ErrorIs(t, err, archive.ErrNotFound)
	require.True(t, exporter.shutdown)
	require.Equal(t, 1, exporter.exported)
}
