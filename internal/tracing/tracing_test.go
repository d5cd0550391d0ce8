package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/pflow/internal/status"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, "file", cfg.Exporter)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, "pflow", cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path")

	_, err = NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestNewProvider_NoExporter(t *testing.T) {
	p, err := NewProvider(Config{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	require.True(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: "file", FilePath: path})
	require.NoError(t, err)

	ctx, ev := StartEvent(context.Background(), p.Tracer(), "run-1", 0, 10, 2)
	_, algo := StartAlgorithm(ctx, p.Tracer(), "clustering", "Clustering", "abc", 0)
	EndSpan(algo, nil)
	EndSpan(ev, status.New(status.Fatal, "ExitScope", "no scope"))
	require.NoError(t, p.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	byName := map[string]SpanRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}
	require.Equal(t, "OK", byName["algorithm.clustering"].Status)
	require.Equal(t, byName[SpanEvent].SpanID, byName["algorithm.clustering"].ParentSpanID)
	require.Equal(t, "ERROR", byName[SpanEvent].Status)
	require.Equal(t, "FATAL", byName[SpanEvent].Attributes[AttrErrorCode])
}

func TestSpanHelpers_WithRecorder(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	p := NewProviderWithProcessor(Config{ServiceName: "test"}, sr)

	ctx, ev := StartEvent(context.Background(), p.Tracer(), "run-2", 3, 5, 1)
	_, algo := StartAlgorithm(ctx, p.Tracer(), "reclustering", "Reclustering", "r1", 1)
	EndSpan(algo, status.New(status.NotFound, "GetList", "list %q", "x"))
	EndSpan(ev, nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	algoSpan := spans[0]
	require.Equal(t, "algorithm.reclustering", algoSpan.Name())
	require.Equal(t, codes.Error, algoSpan.Status().Code)
	require.Contains(t, algoSpan.Attributes(), attribute.String(AttrErrorCode, "NOT_FOUND"))
	require.Contains(t, algoSpan.Attributes(), attribute.Int(AttrAlgorithmDepth, 1))

	evSpan := spans[1]
	require.Equal(t, SpanEvent, evSpan.Name())
	require.Contains(t, evSpan.Attributes(), attribute.Int(AttrEventIndex, 3))
	require.Equal(t, codes.Ok, evSpan.Status().Code)
}

func TestFileExporter_EmptyAndClosed(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exp.ExportSpans(context.Background(), nil))
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	_, span := tp.Tracer("t").Start(context.Background(), "late")
	span.End()
	require.Error(t, exp.ExportSpans(context.Background(), sr.Ended()))
}
