package logging

import (
	"sync"

	"github.com/iskaald/icecold/internal/logger"
)

// Entry is a message that passed its group's policy.
type Entry struct {
	Level      Level
	Group      string
	CallerPath string
	Message    string
	// Text is the formatted line: "[group] message".
	Text string
	// Err is set for exceptions.
	Err error
}

// Sink receives emitted entries.
type Sink interface {
	Emit(Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Emit(e Entry) { f(e) }

// SlogSink forwards entries to the process-wide structured logger.
type SlogSink struct{}

func (SlogSink) Emit(e Entry) {
	args := []any{logger.KeyGroup, e.Group}
	if e.CallerPath != "" {
		args = append(args, logger.KeyModule, e.CallerPath)
	}
	if e.Err != nil {
		args = append(args, logger.KeyError, e.Err.Error())
	}
	logger.Log(toLoggerLevel(e.Level), e.Text, args...)
}

func toLoggerLevel(l Level) logger.Level {
	switch l {
	case LevelWarning:
		return logger.LevelWarn
	case LevelError:
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// MemorySink records entries. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Texts returns the formatted lines recorded so far.
func (s *MemorySink) Texts() []string {
	entries := s.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
