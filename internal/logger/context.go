package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context for lifecycle passes
// and quit negotiations.
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	Phase         string    // startup, shutdown, will-quit, vote
	NegotiationID string    // Quit negotiation identifier
	Service       string    // Service currently being driven
	StartTime     time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given phase
func NewLogContext(phase string) *LogContext {
	return &LogContext{
		Phase:     phase,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithService returns a copy with the service set
func (lc *LogContext) WithService(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Service = name
	}
	return clone
}

// WithNegotiation returns a copy with the negotiation ID set
func (lc *LogContext) WithNegotiation(id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.NegotiationID = id
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// args returns the populated fields as key/value pairs.
func (lc *LogContext) args() []any {
	if lc == nil {
		return nil
	}
	var out []any
	add := func(key, value string) {
		if value != "" {
			out = append(out, key, value)
		}
	}
	add(KeyTraceID, lc.TraceID)
	add(KeySpanID, lc.SpanID)
	add(KeyPhase, lc.Phase)
	add(KeyNegotiationID, lc.NegotiationID)
	add(KeyService, lc.Service)
	return out
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
