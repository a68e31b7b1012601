package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder swaps the package tracer for one backed by a span recorder.
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	mu.Lock()
	prev := tracer
	tracer = tp.Tracer("test")
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "icecold", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "release", cfg.Environment)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	mu.Lock()
	tracer = nil
	enabled = false
	mu.Unlock()

	require.NotNil(t, Tracer())
}

func TestSpanHelpersWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("test error"))
	})

	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
	assert.Contains(t, newSampler(0.25).Description(), "ParentBased")
}

func TestLifecycleSpans(t *testing.T) {
	t.Run("StartLifecycleSpan", func(t *testing.T) {
		rec := useRecorder(t)

		ctx, span := StartLifecycleSpan(context.Background(), "startup", ServiceCount(3))
		assert.NotEmpty(t, TraceID(ctx))
		assert.NotEmpty(t, SpanID(ctx))
		span.End()

		ended := rec.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, SpanLifecycleStartup, ended[0].Name())

		attrs := attrMap(ended[0].Attributes())
		assert.Equal(t, "startup", attrs[AttrLifecyclePhase].AsString())
		assert.Equal(t, int64(3), attrs[AttrServiceCount].AsInt64())
	})

	t.Run("StartServiceSpan", func(t *testing.T) {
		rec := useRecorder(t)

		_, span := StartServiceSpan(context.Background(), SpanServiceInit, "api", 100)
		span.End()

		ended := rec.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, SpanServiceInit, ended[0].Name())

		attrs := attrMap(ended[0].Attributes())
		assert.Equal(t, "api", attrs[AttrServiceName].AsString())
		assert.Equal(t, int64(100), attrs[AttrServicePriority].AsInt64())
	})

	t.Run("StartQuitSpanRecordsErrors", func(t *testing.T) {
		rec := useRecorder(t)

		ctx, span := StartQuitSpan(context.Background(), "n-1", QuitVoters(2))
		RecordError(ctx, errors.New("vetoed"))
		span.End()

		ended := rec.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, SpanQuitNegotiate, ended[0].Name())
		assert.Equal(t, codes.Error, ended[0].Status().Code)

		attrs := attrMap(ended[0].Attributes())
		assert.Equal(t, "n-1", attrs[AttrNegotiationID].AsString())
		assert.Equal(t, int64(2), attrs[AttrQuitVoters].AsInt64())
	})
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr attribute.KeyValue
		key  string
	}{
		{"ServiceState", ServiceState("running"), AttrServiceState},
		{"FailFast", FailFast(true), AttrFailFast},
		{"Failures", Failures(1), AttrFailures},
		{"QuitOutcome", QuitOutcome("granted"), AttrQuitOutcome},
		{"QuitVetoes", QuitVetoes(0), AttrQuitVetoes},
		{"LogGroup", LogGroup("Audio"), AttrLogGroup},
		{"LogEnvironment", LogEnvironment("release"), AttrLogEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
		})
	}
}

func TestProfiling(t *testing.T) {
	t.Run("DisabledIsNoop", func(t *testing.T) {
		shutdown, err := InitProfiling(DefaultProfilingConfig())
		require.NoError(t, err)
		assert.NoError(t, shutdown())
		assert.False(t, IsProfilingEnabled())
	})

	t.Run("InvalidProfileTypeRejected", func(t *testing.T) {
		cfg := DefaultProfilingConfig()
		cfg.Enabled = true
		cfg.ProfileTypes = []string{"cpu", "heap_dump"}

		_, err := InitProfiling(cfg)
		assert.Error(t, err)
		assert.False(t, IsProfilingEnabled())
	})

	t.Run("ValidateProfileTypes", func(t *testing.T) {
		assert.NoError(t, ValidateProfileTypes(DefaultProfilingConfig().ProfileTypes))
		assert.Error(t, ValidateProfileTypes([]string{"bogus"}))
	})

	t.Run("ProfileTypeNamesSorted", func(t *testing.T) {
		names := ProfileTypeNames()
		assert.Len(t, names, 10)
		assert.Equal(t, "alloc_objects", names[0])
		assert.Contains(t, names, "goroutines")
	})
}
