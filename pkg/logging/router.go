package logging

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrAlreadyInstalled is returned when a routing table is installed twice.
var ErrAlreadyInstalled = errors.New("log routing table already installed")

type table struct {
	catalog  *Catalog
	defaults Tiers
}

// Router decides, per call, whether a message from a caller path is
// emitted. Calls made before Install use only the default tiers.
type Router struct {
	table     atomic.Pointer[table]
	installed atomic.Bool
	env       EnvironmentFunc
	sink      Sink
	metrics   *Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithEnvironment sets the environment source. It is consulted on every call.
func WithEnvironment(fn EnvironmentFunc) RouterOption {
	return func(r *Router) {
		if fn != nil {
			r.env = fn
		}
	}
}

// WithSink sets where emitted entries go. The default is SlogSink.
func WithSink(s Sink) RouterOption {
	return func(r *Router) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithMetrics attaches routing metrics.
func WithMetrics(m *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a router that applies defaults until a catalog is
// installed. The environment defaults to release.
func NewRouter(defaults Tiers, opts ...RouterOption) *Router {
	r := &Router{
		env:  StaticEnvironment(EnvironmentRelease),
		sink: SlogSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.table.Store(&table{defaults: defaults})
	return r
}

// Install publishes the group catalog and default tiers. It succeeds once;
// later calls return ErrAlreadyInstalled and leave the table unchanged.
// A nil catalog installs only the defaults.
func (r *Router) Install(c *Catalog, defaults Tiers) error {
	if !r.installed.CompareAndSwap(false, true) {
		return ErrAlreadyInstalled
	}
	r.table.Store(&table{catalog: c, defaults: defaults})
	return nil
}

// Installed reports whether Install has completed.
func (r *Router) Installed() bool {
	return r.installed.Load()
}

// Catalog returns the installed catalog, or nil.
func (r *Router) Catalog() *Catalog {
	return r.table.Load().catalog
}

// Defaults returns the tiers used for unmatched paths.
func (r *Router) Defaults() Tiers {
	return r.table.Load().defaults
}

// Environment returns the current environment.
func (r *Router) Environment() Environment {
	return r.env()
}

// Decision explains how a call would be routed.
type Decision struct {
	Group       string       `json:"group"`
	Prefix      string       `json:"prefix,omitempty"`
	Matched     bool         `json:"matched"`
	Environment Environment  `json:"-"`
	Policy      FilterPolicy `json:"policy"`
	Level       Level        `json:"-"`
	Emit        bool         `json:"emit"`
}

// Explain resolves the group and policy for level at callerPath.
func (r *Router) Explain(level Level, callerPath string) Decision {
	t := r.table.Load()
	env := r.env()

	d := Decision{Group: DefaultGroupName, Environment: env, Level: level}
	tiers := t.defaults
	if g, ok := t.catalog.Match(callerPath); ok {
		d.Group = g.Name
		d.Prefix = g.Prefix
		d.Matched = true
		tiers = g.Tiers
	}
	d.Policy = tiers.For(env)
	d.Emit = d.Policy.Allows(level)
	return d
}

// ShouldEmit reports whether a message at level from callerPath passes.
func (r *Router) ShouldEmit(level Level, callerPath string) bool {
	return r.Explain(level, callerPath).Emit
}

// Route returns the formatted line for message and whether it would be
// emitted. It does not write to the sink.
func (r *Router) Route(level Level, callerPath, message string) (string, bool) {
	d := r.Explain(level, callerPath)
	if !d.Emit {
		return "", false
	}
	return Format(d.Group, message), true
}

// Format renders the routed line.
func Format(group, message string) string {
	return fmt.Sprintf("[%s] %s", group, message)
}

// Log routes message and writes it to the sink when allowed.
func (r *Router) Log(level Level, callerPath, message string) {
	r.dispatch(level, callerPath, message, nil)
}

// LogException routes err through the error gate.
func (r *Router) LogException(callerPath string, err error) {
	if err == nil {
		return
	}
	r.dispatch(LevelError, callerPath, err.Error(), err)
}

func (r *Router) dispatch(level Level, callerPath, message string, err error) {
	d := r.Explain(level, callerPath)
	r.metrics.ObserveMessage(d.Group, level, d.Emit)
	if !d.Emit {
		return
	}
	r.emit(Entry{
		Level:      level,
		Group:      d.Group,
		CallerPath: callerPath,
		Message:    message,
		Text:       Format(d.Group, message),
		Err:        err,
	})
}

// emit must never take the caller down.
func (r *Router) emit(e Entry) {
	defer func() {
		if recover() != nil {
			r.metrics.observeSinkPanic()
		}
	}()
	r.sink.Emit(e)
}

// For returns a logger bound to callerPath.
func (r *Router) For(callerPath string) *Logger {
	return &Logger{router: r, path: callerPath}
}
