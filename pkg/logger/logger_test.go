package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)

	l.Debug("hidden")
	l.Info("scenario run completed", "run_id", "r-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scenario run completed", entry["msg"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestWithContext_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := globalLogger
	globalLogger = NewWithWriter(Config{Format: "json"}, &buf)
	t.Cleanup(func() { globalLogger = prev })

	ctx := ContextWithIDs(context.Background(), "trace-1", "span-1", "req-1")
	Info(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestTraceID_PrefersSpanContext(t *testing.T) {
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
	ctx := trace.ContextWithSpanContext(ContextWithIDs(context.Background(), "fallback", "fallback", ""), sc)

	assert.Equal(t, tid.String(), TraceID(ctx))
	assert.Equal(t, sid.String(), SpanID(ctx))
	assert.Equal(t, "fallback", TraceID(ContextWithIDs(context.Background(), "fallback", "", "")))
	assert.Empty(t, TraceID(context.Background()))
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := New(Config{Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	l.Info("written")
	assert.FileExists(t, path)
}
