package metrics

import (
	"github.com/iskaald/icecold/pkg/logging"
	"github.com/iskaald/icecold/pkg/service"
)

// NewLifecycleMetrics creates lifecycle and quit negotiation metrics on the
// shared registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A nil
// *service.Metrics is accepted everywhere and records nothing.
func NewLifecycleMetrics() *service.Metrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return service.NewMetrics(reg)
}

// NewRoutingMetrics creates log routing metrics on the shared registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRoutingMetrics() *logging.Metrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return logging.NewMetrics(reg)
}
