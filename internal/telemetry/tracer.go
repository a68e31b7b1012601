package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for lifecycle, quit and routing spans.
const (
	// ========================================================================
	// Service attributes
	// ========================================================================
	AttrServiceName     = "service.name"
	AttrServicePriority = "service.priority"
	AttrServiceState    = "service.state"
	AttrServiceCount    = "service.count"

	// ========================================================================
	// Lifecycle attributes
	// ========================================================================
	AttrLifecyclePhase = "lifecycle.phase" // startup, shutdown
	AttrFailFast       = "lifecycle.fail_fast"
	AttrFailures       = "lifecycle.failures"

	// ========================================================================
	// Quit negotiation attributes
	// ========================================================================
	AttrNegotiationID = "quit.negotiation_id"
	AttrQuitOutcome   = "quit.outcome"
	AttrQuitVoters    = "quit.voters"
	AttrQuitVetoes    = "quit.vetoes"

	// ========================================================================
	// Log routing attributes
	// ========================================================================
	AttrLogGroup       = "log.group"
	AttrLogEnvironment = "log.environment"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanLifecycleStartup  = "lifecycle.startup"
	SpanLifecycleShutdown = "lifecycle.shutdown"
	SpanServiceInit       = "service.initialize"
	SpanServiceDeinit     = "service.deinitialize"
	SpanQuitNegotiate     = "quit.negotiate"
	SpanQuitWillQuit      = "quit.will_quit"
	SpanQuitVote          = "quit.vote"
)

// ServiceName returns an attribute for a service name
func ServiceName(name string) attribute.KeyValue {
	return attribute.String(AttrServiceName, name)
}

// ServicePriority returns an attribute for a declared priority
func ServicePriority(p int) attribute.KeyValue {
	return attribute.Int(AttrServicePriority, p)
}

func ServiceState(state string) attribute.KeyValue {
	return attribute.String(AttrServiceState, state)
}

func ServiceCount(n int) attribute.KeyValue {
	return attribute.Int(AttrServiceCount, n)
}

func LifecyclePhase(phase string) attribute.KeyValue {
	return attribute.String(AttrLifecyclePhase, phase)
}

func FailFast(enabled bool) attribute.KeyValue {
	return attribute.Bool(AttrFailFast, enabled)
}

func Failures(n int) attribute.KeyValue {
	return attribute.Int(AttrFailures, n)
}

// NegotiationID returns an attribute for a quit negotiation
func NegotiationID(id string) attribute.KeyValue {
	return attribute.String(AttrNegotiationID, id)
}

func QuitOutcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrQuitOutcome, outcome)
}

func QuitVoters(n int) attribute.KeyValue {
	return attribute.Int(AttrQuitVoters, n)
}

func QuitVetoes(n int) attribute.KeyValue {
	return attribute.Int(AttrQuitVetoes, n)
}

func LogGroup(name string) attribute.KeyValue {
	return attribute.String(AttrLogGroup, name)
}

func LogEnvironment(env string) attribute.KeyValue {
	return attribute.String(AttrLogEnvironment, env)
}

// StartLifecycleSpan starts a span for a startup or shutdown pass.
func StartLifecycleSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{LifecyclePhase(phase)}, attrs...)
	return StartSpan(ctx, "lifecycle."+phase, trace.WithAttributes(allAttrs...))
}

// StartServiceSpan starts a span for a single service callback.
func StartServiceSpan(ctx context.Context, spanName, service string, priority int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ServiceName(service),
		ServicePriority(priority),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartQuitSpan starts the root span of a quit negotiation.
func StartQuitSpan(ctx context.Context, negotiationID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{NegotiationID(negotiationID)}, attrs...)
	return StartSpan(ctx, SpanQuitNegotiate, trace.WithAttributes(allAttrs...))
}
