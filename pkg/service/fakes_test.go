package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/iskaald/icecold/pkg/logging"
)

// ============================================================================
// Event log
// ============================================================================

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// filter returns events with the given prefix, prefix stripped.
func (l *eventLog) filter(prefix string) []string {
	var out []string
	for _, e := range l.all() {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

// ============================================================================
// Fake services
// ============================================================================

type testService struct {
	name        string
	events      *eventLog
	initErr     error
	deinitErr   error
	initPanic   bool
	initialized bool
}

func (s *testService) Initialize() error {
	if s.initPanic {
		panic("init exploded")
	}
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	s.events.add("init:" + s.name)
	return nil
}

func (s *testService) Deinitialize() error {
	s.initialized = false
	s.events.add("deinit:" + s.name)
	return s.deinitErr
}

func (s *testService) IsInitialized() bool {
	return s.initialized
}

func (s *testService) OnWillQuit() {
	s.events.add("will-quit:" + s.name)
}

// Distinct concrete types; the registry is keyed by concrete type.
type alpha struct{ testService }
type beta struct{ testService }
type gamma struct{ testService }
type delta struct{ testService }

// Greeter is a capability some fakes provide.
type Greeter interface {
	Greet() string
}

func (a *alpha) Greet() string { return "alpha" }
func (g *gamma) Greet() string { return "gamma" }

// voterService answers CanQuit with a configurable vote.
type voterService struct {
	testService
	answer bool
	err    error
	panics bool
	// gate, when set, must be closed (or ctx done) before the vote returns.
	gate chan struct{}
}

func (v *voterService) CanQuit(ctx context.Context) (bool, error) {
	v.events.add("vote:" + v.name)
	if v.panics {
		panic("vote exploded")
	}
	if v.gate != nil {
		select {
		case <-v.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return v.answer, v.err
}

type voterA struct{ voterService }
type voterB struct{ voterService }
type voterC struct{ voterService }

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	events   *eventLog
	sink     *logging.MemorySink
	router   *logging.Router
	registry *Registry
	metrics  *Metrics
	promReg  *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sink := logging.NewMemorySink()
	router := logging.NewRouter(logging.DefaultTiers(),
		logging.WithEnvironment(logging.StaticEnvironment(logging.EnvironmentDebug)),
		logging.WithSink(sink))
	promReg := prometheus.NewRegistry()

	return &harness{
		events:   &eventLog{},
		sink:     sink,
		router:   router,
		registry: NewRegistry(WithRegistryLogger(router.For(LogPath))),
		metrics:  NewMetrics(promReg),
		promReg:  promReg,
	}
}

func (h *harness) orchestrator(m Manifest, opts ...OrchestratorOption) *Orchestrator {
	opts = append([]OrchestratorOption{WithLogger(h.router.For(LogPath)), WithMetrics(h.metrics)}, opts...)
	return NewOrchestrator(h.registry, m, opts...)
}

func (h *harness) coordinator(o *Orchestrator, opts ...QuitOption) *QuitCoordinator {
	opts = append([]QuitOption{WithQuitMetrics(h.metrics)}, opts...)
	return NewQuitCoordinator(o, opts...)
}

func (h *harness) base(name string) testService {
	return testService{name: name, events: h.events}
}

func (h *harness) voter(name string, answer bool) voterService {
	return voterService{testService: h.base(name), answer: answer}
}

func (h *harness) started(t *testing.T, m Manifest, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	o := h.orchestrator(m, opts...)
	require.NoError(t, o.Startup(context.Background()))
	return o
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
