package logging

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label constants for routing metrics.
const (
	LabelGroup   = "group"
	LabelLevel   = "level"
	LabelOutcome = "outcome"
)

// Outcome constants for routed messages.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
)

// Metrics counts routing decisions.
type Metrics struct {
	messagesTotal *prometheus.CounterVec
	sinkPanics    prometheus.Counter
}

// NewMetrics creates routing metrics and registers them with registry.
// A nil registry leaves the collectors unregistered, which is what tests use.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "icecold",
				Subsystem: "log",
				Name:      "messages_total",
				Help:      "Routed log messages by group, level and outcome",
			},
			[]string{LabelGroup, LabelLevel, LabelOutcome},
		),
		sinkPanics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "icecold",
				Subsystem: "log",
				Name:      "sink_panics_total",
				Help:      "Panics recovered while writing to the log sink",
			},
		),
	}

	if registry != nil {
		m.messagesTotal = registerOrReuse(registry, m.messagesTotal).(*prometheus.CounterVec)
		m.sinkPanics = registerOrReuse(registry, m.sinkPanics).(prometheus.Counter)
	}

	return m
}

// ObserveMessage records one routing decision.
func (m *Metrics) ObserveMessage(group string, level Level, emitted bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuppressed
	if emitted {
		outcome = OutcomeEmitted
	}
	m.messagesTotal.WithLabelValues(group, level.String(), outcome).Inc()
}

func (m *Metrics) observeSinkPanic() {
	if m == nil {
		return
	}
	m.sinkPanics.Inc()
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
