package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/internal/telemetry"
	"github.com/iskaald/icecold/pkg/logging"
)

// ErrShutDown is returned by Startup once the orchestrator has been shut
// down, for instance by a quit granted before startup.
var ErrShutDown = errors.New("orchestrator has been shut down")

// Orchestrator drives startup and teardown over a registry.
type Orchestrator struct {
	registry *Registry
	manifest Manifest
	failFast bool
	log      *logging.Logger
	metrics  *Metrics

	mu          sync.Mutex
	started     bool
	initialized bool
	stopped     bool

	onInitialized   *Signal
	onDeinitialized *Signal
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithFailFast stops startup at the first initialization failure and tears
// down what was already running.
func WithFailFast(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.failFast = enabled
	}
}

// WithLogger routes lifecycle messages through l.
func WithLogger(l *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator for manifest. Without WithLogger
// lifecycle messages go through a router with default tiers.
func NewOrchestrator(registry *Registry, manifest Manifest, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:        registry,
		manifest:        manifest,
		onInitialized:   NewSignal("initialized"),
		onDeinitialized: NewSignal("deinitialized"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.NewRouter(logging.DefaultTiers()).For(LogPath)
	}
	return o
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// OnInitialized fires once after the startup pass.
func (o *Orchestrator) OnInitialized() *Signal {
	return o.onInitialized
}

// OnDeinitialized fires once after the teardown pass.
func (o *Orchestrator) OnDeinitialized() *Signal {
	return o.onDeinitialized
}

// Initialized reports whether the startup pass completed.
func (o *Orchestrator) Initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initialized && !o.stopped
}

// Startup constructs, registers and initializes every definition in
// ascending priority order. Failures are logged and the pass continues,
// unless fail-fast is set. Startup runs at most once, and never after
// Shutdown.
func (o *Orchestrator) Startup(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return ErrShutDown
	}
	if o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.mu.Unlock()

	sorted := o.manifest.Sorted()
	ctx, span := telemetry.StartLifecycleSpan(ctx, PhaseStartup,
		telemetry.ServiceCount(len(sorted)),
		telemetry.FailFast(o.failFast))
	defer span.End()

	lc := logger.NewLogContext(PhaseStartup).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)
	start := time.Now()

	var failures int
	for _, def := range sorted {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(ctx, err)
			return fmt.Errorf("startup interrupted: %w", err)
		}

		err := o.startOne(ctx, def)
		if err == nil {
			continue
		}

		failures++
		o.metrics.RecordFailure(PhaseStartup)
		o.log.Exception(err)

		if o.failFast && IsInitializationError(err) {
			telemetry.RecordError(ctx, err)
			o.log.Errorf("fail-fast: stopping startup after %s", def.Name)
			if terr := o.teardown(ctx); terr != nil {
				err = errors.Join(err, terr)
			}
			o.mu.Lock()
			o.stopped = true
			o.mu.Unlock()
			o.metrics.ObservePass(PhaseStartup, time.Since(start))
			return err
		}
	}

	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()

	counts := o.publishStates()
	o.metrics.ObservePass(PhaseStartup, time.Since(start))
	span.SetAttributes(telemetry.Failures(failures))
	logger.InfoCtx(ctx, "startup complete",
		logger.KeyCount, counts[StateRunning],
		logger.KeyDurationMs, lc.DurationMs())
	o.log.Infof("%d service(s) started, %d failure(s)", counts[StateRunning], failures)

	o.onInitialized.Emit()
	return nil
}

func (o *Orchestrator) startOne(ctx context.Context, def Definition) error {
	if def.New == nil {
		return NewInvalidDefinitionError(def.Name, "definition has no constructor")
	}

	instance, err := safeConstruct(def.New)
	if err != nil {
		return NewInitializationError(def.Name, err)
	}

	d := NewDescriptor(def.Name, instance, def.Priority, def.Capabilities...)
	if err := o.registry.Register(d); err != nil {
		return err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, telemetry.SpanServiceInit, d.Name, d.Priority)
	defer span.End()

	logger.DebugCtx(ctx, "initializing service",
		logger.KeyService, d.Name,
		logger.KeyPriority, d.Priority)

	if err := safeCall(instance.Initialize); err != nil {
		werr := NewInitializationError(d.Name, err)
		o.registry.setState(d, StateFailed, werr)
		telemetry.RecordError(ctx, werr)
		return werr
	}

	o.registry.setState(d, StateRunning, nil)
	return nil
}

// Shutdown deinitializes every running service in descending order. Every
// service is visited; failures are collected and returned together.
// Calling Shutdown again is a no-op.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	o.mu.Unlock()

	ctx, span := telemetry.StartLifecycleSpan(ctx, PhaseShutdown,
		telemetry.ServiceCount(o.registry.Len()))
	defer span.End()

	lc := logger.NewLogContext(PhaseShutdown).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)
	start := time.Now()

	err := o.teardown(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}

	o.publishStates()
	o.metrics.ObservePass(PhaseShutdown, time.Since(start))
	logger.InfoCtx(ctx, "shutdown complete", logger.KeyDurationMs, lc.DurationMs())

	o.onDeinitialized.Emit()
	o.registry.release()
	return err
}

func (o *Orchestrator) teardown(ctx context.Context) error {
	var errs []error
	for _, d := range o.registry.AllOrdered(false) {
		if o.registry.StateOf(d) != StateRunning {
			continue
		}

		logger.DebugCtx(ctx, "deinitializing service",
			logger.KeyService, d.Name,
			logger.KeyPriority, d.Priority)

		_, span := telemetry.StartServiceSpan(ctx, telemetry.SpanServiceDeinit, d.Name, d.Priority)
		err := safeCall(d.Instance.Deinitialize)
		span.End()

		if err != nil {
			werr := NewDeinitializationError(d.Name, err)
			o.registry.setState(d, StateDeinitialized, werr)
			o.metrics.RecordFailure(PhaseShutdown)
			o.log.Exception(werr)
			errs = append(errs, werr)
			continue
		}
		o.registry.setState(d, StateDeinitialized, nil)
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) publishStates() map[State]int {
	counts := make(map[State]int)
	for _, d := range o.registry.AllOrdered(true) {
		counts[o.registry.StateOf(d)]++
	}
	o.metrics.SetServiceStates(counts)
	return counts
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Debug("recovered panic in service callback", "stack", string(debug.Stack()))
		}
	}()
	return fn()
}

func safeConstruct(ctor Constructor) (svc Service, err error) {
	defer func() {
		if r := recover(); r != nil {
			svc, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	svc, err = ctor()
	if err == nil && isNil(svc) {
		err = errors.New("constructor returned a nil service")
	}
	return svc, err
}
