// Package logger is the process-wide structured logger. Output goes through
// log/slog, as colored text on a terminal or as JSON.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is a structured log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name into a Level. Unknown names report false.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// destination is where records go and how they are rendered.
type destination struct {
	w      io.Writer
	closer io.Closer
	color  bool
	format string
}

var (
	// level is shared by every handler, so SetLevel never rebuilds.
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	dest    destination
	slogger *slog.Logger
)

func init() {
	dest = stdDestination(os.Stdout)
	dest.format = "text"
	rebuild()
}

func stdDestination(f *os.File) destination {
	return destination{w: f, color: isTerminal(f.Fd())}
}

// rebuild installs a handler for dest. Callers hold mu.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if dest.format == "json" {
		h = slog.NewJSONHandler(dest.w, opts)
	} else {
		h = NewColorTextHandler(dest.w, opts, dest.color)
	}
	slogger = slog.New(h)
}

// Init applies cfg. Empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		next, err := openDestination(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		if dest.closer != nil {
			_ = dest.closer.Close()
		}
		next.format = dest.format
		dest = next
		rebuild()
		mu.Unlock()
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	return nil
}

func openDestination(output string) (destination, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return stdDestination(os.Stdout), nil
	case "stderr":
		return stdDestination(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return destination{}, fmt.Errorf("failed to open log file %q: %w", output, err)
	}
	return destination{w: f, closer: f}, nil
}

// Close releases the log file opened by Init, if any, and returns to stdout.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if dest.closer == nil {
		return nil
	}
	err := dest.closer.Close()
	format := dest.format
	dest = stdDestination(os.Stdout)
	dest.format = format
	rebuild()
	return err
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l.toSlog())
	}
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch l := level.Level(); {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// SetFormat switches between "text" and "json". Other values are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if dest.format == format {
		return
	}
	dest.format = format
	rebuild()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Log writes msg at l. Sinks that pick the level at runtime use it.
func Log(l Level, msg string, args ...any) {
	logAt(context.Background(), l, msg, args)
}

func logAt(ctx context.Context, l Level, msg string, args []any) {
	if l.toSlog() < level.Level() {
		return
	}
	current().Log(ctx, l.toSlog(), msg, args...)
}

// Debug logs msg with key/value pairs: Debug("msg", "k1", v1, "k2", v2).
func Debug(msg string, args ...any) { logAt(context.Background(), LevelDebug, msg, args) }

func Info(msg string, args ...any) { logAt(context.Background(), LevelInfo, msg, args) }

func Warn(msg string, args ...any) { logAt(context.Background(), LevelWarn, msg, args) }

func Error(msg string, args ...any) { logAt(context.Background(), LevelError, msg, args) }

// DebugCtx logs msg with the fields of the LogContext carried by ctx placed
// first.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelInfo, msg, args)
}

func logCtx(ctx context.Context, l Level, msg string, args []any) {
	if l.toSlog() < level.Level() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logAt(ctx, l, msg, append(FromContext(ctx).args(), args...))
}
