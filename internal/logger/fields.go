package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Lifecycle
	// ========================================================================
	KeyService  = "service"  // Service name from the manifest
	KeyPriority = "priority" // Declared service priority
	KeyState    = "state"    // Descriptor state
	KeyPhase    = "phase"    // Lifecycle phase: startup, shutdown, will-quit, vote
	KeyCount    = "count"    // Number of services in a pass

	// ========================================================================
	// Quit Negotiation
	// ========================================================================
	KeyNegotiationID = "negotiation_id" // Quit negotiation identifier
	KeyOutcome       = "outcome"        // granted, aborted, ignored
	KeyVoters        = "voters"         // Number of consulted voters
	KeyVetoes        = "vetoes"         // Services that refused

	// ========================================================================
	// Log Routing
	// ========================================================================
	KeyGroup       = "group"       // Resolved log group
	KeyModule      = "module"      // Call-site module identity
	KeyEnvironment = "environment" // editor, debug, release

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Error code name
	KeySource     = "source"      // Configuration source
)

// ============================================================================
// Field Constructors
// ============================================================================

func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Service returns a service-name attribute.
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

func NegotiationID(id string) slog.Attr {
	return slog.String(KeyNegotiationID, id)
}

// Group returns a log-group attribute.
func Group(name string) slog.Attr {
	return slog.String(KeyGroup, name)
}

func Module(path string) slog.Attr {
	return slog.String(KeyModule, path)
}

func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns an error attribute; a nil error yields an empty attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
