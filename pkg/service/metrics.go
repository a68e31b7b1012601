package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label constants for lifecycle metrics.
const (
	LabelPhase   = "phase"
	LabelOutcome = "outcome"
	LabelState   = "state"
)

// Phase constants.
const (
	PhaseStartup  = "startup"
	PhaseShutdown = "shutdown"
	PhaseWillQuit = "will-quit"
	PhaseVote     = "vote"
)

// Metrics provides Prometheus metrics for lifecycle passes and quit
// negotiations.
type Metrics struct {
	passDuration     *prometheus.HistogramVec
	failures         *prometheus.CounterVec
	servicesGauge    *prometheus.GaugeVec
	negotiations     *prometheus.CounterVec
	vetoes           prometheus.Counter
	negotiationTimer prometheus.Histogram
}

// NewMetrics creates lifecycle metrics and registers them with registry.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "icecold",
				Subsystem: "lifecycle",
				Name:      "pass_duration_seconds",
				Help:      "Duration of startup and shutdown passes",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{LabelPhase},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "icecold",
				Subsystem: "lifecycle",
				Name:      "failures_total",
				Help:      "Service callback failures by phase",
			},
			[]string{LabelPhase},
		),
		servicesGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "icecold",
				Subsystem: "lifecycle",
				Name:      "services",
				Help:      "Registered services by state",
			},
			[]string{LabelState},
		),
		negotiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "icecold",
				Subsystem: "quit",
				Name:      "negotiations_total",
				Help:      "Quit requests by outcome",
			},
			[]string{LabelOutcome},
		),
		vetoes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "icecold",
				Subsystem: "quit",
				Name:      "vetoes_total",
				Help:      "Negative quit votes, including errors and timeouts",
			},
		),
		negotiationTimer: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "icecold",
				Subsystem: "quit",
				Name:      "negotiation_duration_seconds",
				Help:      "Duration of quit negotiations, teardown included",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}

	if registry != nil {
		m.passDuration = registerOrReuse(registry, m.passDuration).(*prometheus.HistogramVec)
		m.failures = registerOrReuse(registry, m.failures).(*prometheus.CounterVec)
		m.servicesGauge = registerOrReuse(registry, m.servicesGauge).(*prometheus.GaugeVec)
		m.negotiations = registerOrReuse(registry, m.negotiations).(*prometheus.CounterVec)
		m.vetoes = registerOrReuse(registry, m.vetoes).(prometheus.Counter)
		m.negotiationTimer = registerOrReuse(registry, m.negotiationTimer).(prometheus.Histogram)
	}

	return m
}

func (m *Metrics) ObservePass(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) RecordFailure(phase string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(phase).Inc()
}

// SetServiceStates replaces the per-state service gauge.
func (m *Metrics) SetServiceStates(counts map[State]int) {
	if m == nil {
		return
	}
	for _, s := range []State{StateUninitialized, StateRunning, StateDeinitialized, StateFailed} {
		m.servicesGauge.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func (m *Metrics) ObserveNegotiation(outcome QuitOutcome, vetoes int, d time.Duration) {
	if m == nil {
		return
	}
	m.negotiations.WithLabelValues(outcome.String()).Inc()
	if outcome == QuitIgnored {
		return
	}
	m.vetoes.Add(float64(vetoes))
	m.negotiationTimer.Observe(d.Seconds())
}

// registerOrReuse returns the already-registered collector on restart so
// metrics keep flowing. Any other registration failure panics.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
