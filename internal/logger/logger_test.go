package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	saved := dest
	dest = destination{w: buf, format: "text"}
	rebuild()
	mu.Unlock()

	savedLevel := level.Level()

	cleanup := func() {
		mu.Lock()
		dest = saved
		rebuild()
		mu.Unlock()
		level.Set(savedLevel)
	}

	return buf, cleanup
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("LogHonoursMinimumLevel", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")

		Log(LevelInfo, "quiet")
		Log(LevelError, "loud")

		out := buf.String()
		assert.NotContains(t, out, "quiet")
		assert.Contains(t, out, "loud")
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("SetLevelIsCaseInsensitive", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("warning")
		assert.Equal(t, LevelWarn, GetLevel())

		SetLevel("debug")
		assert.Equal(t, LevelDebug, GetLevel())
	})

	t.Run("SetLevelIgnoresInvalidValues", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("LOUD")
		assert.Equal(t, LevelInfo, GetLevel())
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestMessageFormatting(t *testing.T) {
	t.Run("FormatsMessagesWithStructuredFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("service started", KeyService, "logging", KeyPriority, 0)

		out := buf.String()
		assert.Contains(t, out, "[INFO]")
		assert.Contains(t, out, "service started")
		assert.Contains(t, out, "service=logging")
		assert.Contains(t, out, "priority=0")
	})

	t.Run("GroupedAttributesAreFlattened", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("negotiating", slog.Group("quit", slog.Int("voters", 2)))

		assert.Contains(t, buf.String(), "quit.voters=2")
	})

	t.Run("RoutedGroupIsNotRepeated", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("[Audio] buffer underrun", KeyGroup, "Audio", KeyModule, "/src/audio/mixer.go")

		out := buf.String()
		assert.Contains(t, out, "[INFO] [Audio] buffer underrun (/src/audio/mixer.go)")
		assert.NotContains(t, out, "group=")
	})

	t.Run("GroupWithoutPrefixIsPrepended", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("connected", KeyGroup, "Net")

		assert.Contains(t, buf.String(), "[INFO] [Net] connected")
	})

	t.Run("StringsWithSpacesAreQuoted", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		Info("vetoed", KeyError, "unsaved changes")

		assert.Contains(t, buf.String(), `error="unsaved changes"`)
	})

	t.Run("JSONFormatProducesValidJSON", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")
		Info("json message", KeyGroup, "audio")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "json message", entry["msg"])
		assert.Equal(t, "audio", entry["group"])
		assert.Equal(t, "INFO", entry["level"])
	})

	t.Run("InvalidFormatIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("xml")
		Info("still text")

		assert.True(t, strings.HasPrefix(buf.String(), "["))
	})
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		lc := NewLogContext("vote").WithNegotiation("n-1").WithService("saver")
		InfoCtx(WithContext(context.Background(), lc), "vote collected")

		out := buf.String()
		assert.Contains(t, out, "phase=vote")
		assert.Contains(t, out, "negotiation_id=n-1")
		assert.Contains(t, out, "service=saver")
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		//nolint:staticcheck // nil context is part of the contract
		InfoCtx(nil, "no context")
		assert.Contains(t, buf.String(), "no context")
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("startup")
		clone := lc.WithService("api")
		assert.Empty(t, lc.Service)
		assert.Equal(t, "api", clone.Service)
		assert.Equal(t, "startup", clone.Phase)
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, KeyNegotiationID, NegotiationID("x").Key)
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInit(t *testing.T) {
	t.Run("InitWithFileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "icecold.log")
		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file")
		require.NoError(t, Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("InitWithBadPathFails", func(t *testing.T) {
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Info("concurrent")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "concurrent"))
}
