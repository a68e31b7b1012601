package config

import (
	"strings"
	"time"

	"github.com/iskaald/icecold/internal/telemetry"
	"github.com/iskaald/icecold/pkg/logging"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyEnvironmentDefaults(cfg)
	applyLoggingDefaults(&cfg.Logging)
	applyLogRoutingDefaults(&cfg.LogRouting)
	applyLifecycleDefaults(&cfg.Lifecycle)
	applyTelemetryDefaults(&cfg.Telemetry)
	cfg.API.ApplyDefaults()
}

// applyEnvironmentDefaults defaults to release and normalizes aliases such
// as "dev" or "production" to their canonical tier name.
func applyEnvironmentDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = logging.EnvironmentRelease.String()
		return
	}
	if env, err := logging.ParseEnvironment(cfg.Environment); err == nil {
		cfg.Environment = env.String()
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyLogRoutingDefaults(cfg *LogRoutingConfig) {
	if cfg.Defaults == nil {
		t := logging.DefaultTiers()
		cfg.Defaults = &t
	}
}

func applyLifecycleDefaults(cfg *LifecycleConfig) {
	if cfg.QuitTimeout == 0 {
		cfg.QuitTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	defaults := telemetry.DefaultProfilingConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = defaults.ProfileTypes
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// The default config has no log groups, so every caller path falls back to
// the default tiers.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
