// Package runtime wires the log router, service registry, lifecycle
// orchestrator and quit coordinator into one process context.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/pkg/api"
	"github.com/iskaald/icecold/pkg/config"
	"github.com/iskaald/icecold/pkg/logging"
	"github.com/iskaald/icecold/pkg/metrics"
	"github.com/iskaald/icecold/pkg/service"
)

// LogPath is the caller path the runtime logs under.
const LogPath = "icecold/runtime"

// LoggingServiceName is the manifest name of the built-in logging service.
const LoggingServiceName = "logging"

// Runtime owns the process-wide lifecycle state. It is created once at
// process start and passed to whatever needs it; there are no globals.
type Runtime struct {
	cfg          *config.Config
	router       *logging.Router
	registry     *service.Registry
	orchestrator *service.Orchestrator
	quit         *service.QuitCoordinator
	apiService   *api.Service
	manifest     service.Manifest
	log          *logging.Logger

	signals []os.Signal
	mu      sync.Mutex
	lastRes *service.QuitResult
}

// Option customizes a Runtime.
type Option func(*options)

type options struct {
	sink       logging.Sink
	signals    []os.Signal
	apiOptions []api.ServerOption
	envFunc    logging.EnvironmentFunc
}

// WithSink replaces the router's sink. The default writes through the
// structured logger.
func WithSink(s logging.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithSignals sets the OS signals that start a quit negotiation in Run.
// Defaults to SIGINT and SIGTERM.
func WithSignals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// WithAPIServerOptions passes options through to the admin API server.
func WithAPIServerOptions(opts ...api.ServerOption) Option {
	return func(o *options) {
		o.apiOptions = append(o.apiOptions, opts...)
	}
}

// WithEnvironmentFunc overrides the environment tier, which otherwise comes
// from the configuration.
func WithEnvironmentFunc(fn logging.EnvironmentFunc) Option {
	return func(o *options) {
		o.envFunc = fn
	}
}

// New builds a runtime for cfg. The built-in services (logging, and the
// admin API when enabled) are prepended to manifest. A nil cfg uses the
// default configuration.
func New(cfg *config.Config, manifest service.Manifest, opts ...Option) *Runtime {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}

	o := options{signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.envFunc == nil {
		o.envFunc = logging.StaticEnvironment(cfg.ParsedEnvironment())
	}

	routerOpts := []logging.RouterOption{
		logging.WithEnvironment(o.envFunc),
		logging.WithMetrics(metrics.NewRoutingMetrics()),
	}
	if o.sink != nil {
		routerOpts = append(routerOpts, logging.WithSink(o.sink))
	}
	router := logging.NewRouter(cfg.LogRouting.DefaultTiers(), routerOpts...)

	lifecycleMetrics := metrics.NewLifecycleMetrics()
	registry := service.NewRegistry(service.WithRegistryLogger(router.For(service.LogPath)))

	r := &Runtime{
		cfg:      cfg,
		router:   router,
		registry: registry,
		signals:  o.signals,
		log:      router.For(LogPath),
	}

	builtins := service.NewManifest(
		service.Define(LoggingServiceName,
			service.Instance(logging.NewService(router, config.NewCatalogSource(cfg.LogRouting))),
			service.WithPriority(logging.ServicePriority),
			service.Provides[logging.LoggerService](),
		),
	)
	if cfg.API.IsEnabled() {
		r.apiService = api.NewService(cfg.API, r, o.apiOptions...)
		builtins = builtins.With(service.Define(api.ServiceName,
			service.Instance(r.apiService),
			service.WithPriority(api.ServicePriority),
		))
	}

	r.manifest = builtins.With(manifest...)
	r.orchestrator = service.NewOrchestrator(registry, r.manifest,
		service.WithFailFast(cfg.Lifecycle.FailFast),
		service.WithLogger(router.For(service.LogPath)),
		service.WithMetrics(lifecycleMetrics),
	)
	r.quit = service.NewQuitCoordinator(r.orchestrator,
		service.WithQuitTimeout(cfg.Lifecycle.QuitTimeout),
		service.WithQuitMetrics(lifecycleMetrics),
	)
	return r
}

func (r *Runtime) Config() *config.Config { return r.cfg }

func (r *Runtime) Router() *logging.Router { return r.router }

func (r *Runtime) Registry() *service.Registry { return r.registry }

func (r *Runtime) Orchestrator() *service.Orchestrator { return r.orchestrator }

func (r *Runtime) Quit() *service.QuitCoordinator { return r.quit }

// Manifest returns every definition, built-ins included, in startup order.
func (r *Runtime) Manifest() service.Manifest { return r.manifest.Sorted() }

// API returns the admin API service, or nil when the API is disabled.
func (r *Runtime) API() *api.Service { return r.apiService }

// For returns a logger bound to callerPath.
func (r *Runtime) For(callerPath string) *logging.Logger {
	return r.router.For(callerPath)
}

// Ready reports whether startup completed and no quit has been granted.
func (r *Runtime) Ready() bool {
	return r.orchestrator.Initialized() && r.quit.State() != service.QuitStateGranted
}

// Start runs the startup pass. If it fails, whatever already started is
// torn down before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	err := r.orchestrator.Startup(ctx)
	if err == nil {
		return nil
	}
	if serr := r.orchestrator.Shutdown(context.WithoutCancel(ctx)); serr != nil {
		err = errors.Join(err, serr)
	}
	return fmt.Errorf("startup failed: %w", err)
}

// RequestQuit negotiates a quit. Teardown errors after a grant are logged
// and reported in the result.
func (r *Runtime) RequestQuit(ctx context.Context) service.QuitResult {
	res := r.quit.RequestQuit(ctx)
	if res.Outcome != service.QuitIgnored {
		r.mu.Lock()
		r.lastRes = &res
		r.mu.Unlock()
	}
	if res.ShutdownErr != nil {
		r.log.Exception(res.ShutdownErr)
	}
	return res
}

// LastQuit returns the most recent negotiated result, if any.
func (r *Runtime) LastQuit() (service.QuitResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRes == nil {
		return service.QuitResult{}, false
	}
	return *r.lastRes, true
}

// Shutdown tears every service down without negotiation.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.orchestrator.Shutdown(ctx)
}

// Run starts the services and blocks until a quit is granted.
//
// Each configured OS signal starts a negotiation in its own goroutine, so a
// signal that arrives while one is in progress is ignored. A vetoed quit
// leaves the process running. Cancelling ctx tears everything down without
// asking the voters. A failing admin API server is treated the same way.
func (r *Runtime) Run(ctx context.Context) error {
	granted := make(chan struct{})
	var grantOnce sync.Once
	unsubscribe := r.quit.OnQuitGranted().Subscribe(func() {
		grantOnce.Do(func() { close(granted) })
	})
	defer unsubscribe()

	if err := r.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	if len(r.signals) > 0 {
		signal.Notify(sigChan, r.signals...)
		defer signal.Stop(sigChan)
	}

	var apiErrs <-chan error
	if r.apiService != nil {
		apiErrs = r.apiService.Errors()
	}

	logger.Info("Runtime is running. Press Ctrl+C to quit.", "services", r.registry.Len())

	for {
		select {
		case <-granted:
			r.waitForAPI()
			logger.Info("Runtime stopped")
			return nil

		case sig := <-sigChan:
			logger.Info("Quit signal received", "signal", sig.String())
			go r.RequestQuit(context.WithoutCancel(ctx))

		case err := <-apiErrs:
			logger.Error("API server failed - shutting down", "error", err)
			return r.hardShutdown(fmt.Errorf("API server error: %w", err))

		case <-ctx.Done():
			logger.Info("Context cancelled - shutting down without negotiation", "reason", ctx.Err())
			return r.hardShutdown(nil)
		}
	}
}

func (r *Runtime) hardShutdown(cause error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout())
	defer cancel()

	if err := r.orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
		if cause == nil {
			return err
		}
	}
	logger.Info("Runtime stopped")
	return cause
}

// waitForAPI waits for an admin API server stopped in the background by a
// quit it was serving.
func (r *Runtime) waitForAPI() {
	if r.apiService == nil {
		return
	}
	select {
	case <-r.apiService.Done():
	case <-time.After(r.shutdownTimeout()):
		logger.Warn("API server did not stop in time", "timeout", r.shutdownTimeout())
	}
}

func (r *Runtime) shutdownTimeout() time.Duration {
	if r.cfg.Lifecycle.ShutdownTimeout > 0 {
		return r.cfg.Lifecycle.ShutdownTimeout
	}
	return 30 * time.Second
}

var _ api.Runtime = (*Runtime)(nil)
