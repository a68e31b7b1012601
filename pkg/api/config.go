package api

import (
	"fmt"
	"time"
)

// Admin API defaults. DefaultWriteTimeout is sized against the default quit
// vote timeout (10s) so a POST /quit that waits out every voter still gets
// its response written.
const (
	DefaultPort         = 8080
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// QuitWriteHeadroom is the margin the write deadline must keep over the quit
// vote timeout. It covers aggregating the votes and encoding the response.
const QuitWriteHeadroom = time.Second

// APIConfig configures the admin HTTP API that serves service state, the
// routing table, readiness and the negotiated quit endpoint.
//
// POST /quit blocks for the whole vote phase, so WriteTimeout and the
// lifecycle quit timeout are coupled. See CoversQuit.
type APIConfig struct {
	// Enabled starts the admin API. Unset means enabled; a pointer keeps an
	// explicit false distinguishable from a missing key.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled,omitempty"`

	// Port the admin API listens on (all interfaces).
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds reading a request. Admin requests carry no body
	// worth waiting for. Zero or negative disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds the handler plus response write. It is measured
	// from the end of the request headers, so for POST /quit it includes
	// every vote the coordinator waits on. It has to be at least the quit
	// timeout plus QuitWriteHeadroom, otherwise the client sees a dropped
	// connection instead of the granted or aborted outcome.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idle connections.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled reports whether the admin API should be started.
func (c *APIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Addr is the listen address derived from Port.
func (c *APIConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CoversQuit reports whether a POST /quit that runs for the full quit
// timeout can still write its response. A disabled API, or a non-positive
// WriteTimeout (no deadline), always covers it. A quit timeout of zero
// leaves the vote phase unbounded, which no finite write deadline covers.
func (c *APIConfig) CoversQuit(quitTimeout time.Duration) bool {
	if !c.IsEnabled() || c.WriteTimeout <= 0 {
		return true
	}
	if quitTimeout <= 0 {
		return false
	}
	return c.WriteTimeout >= quitTimeout+QuitWriteHeadroom
}

// ApplyDefaults fills zero values. Negative timeouts are kept as an
// explicit "no deadline".
func (c *APIConfig) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}
