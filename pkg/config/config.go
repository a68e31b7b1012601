package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/iskaald/icecold/pkg/api"
	"github.com/iskaald/icecold/pkg/logging"
)

// Config represents the icecold runtime configuration.
//
// This structure captures static configuration of a host process:
//   - Environment tier (editor, debug, release) used by log routing
//   - Logging output for the structured logger
//   - Log routing catalog (default tiers, groups, optional catalog file)
//   - Lifecycle behavior (fail-fast, quit vote timeout, shutdown timeout)
//   - Metrics, telemetry and the admin API
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (ICECOLD_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Environment selects the filter tier applied by the log router.
	// Valid values: editor, debug, release
	Environment string `mapstructure:"environment" validate:"required,oneof=editor debug release" yaml:"environment"`

	// Logging controls structured log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// LogRouting configures the hierarchical log router
	LogRouting LogRoutingConfig `mapstructure:"log_routing" yaml:"log_routing"`

	// Lifecycle controls startup, quit negotiation and teardown
	Lifecycle LifecycleConfig `mapstructure:"lifecycle" yaml:"lifecycle"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// API contains admin API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// LogRoutingConfig configures the log group catalog.
type LogRoutingConfig struct {
	// Defaults apply to caller paths that match no group. Tiers or flags
	// left out keep their default values.
	Defaults *logging.Tiers `mapstructure:"defaults" yaml:"defaults,omitempty"`

	// Groups declared inline
	Groups []GroupConfig `mapstructure:"groups" validate:"dive" yaml:"groups,omitempty"`

	// CatalogFile is an optional YAML file holding additional groups.
	// Relative paths are resolved against the config directory.
	CatalogFile string `mapstructure:"catalog_file" yaml:"catalog_file,omitempty"`
}

// GroupConfig declares one log group.
type GroupConfig struct {
	Name   string `mapstructure:"name" validate:"required" yaml:"name" json:"name"`
	Prefix string `mapstructure:"prefix" validate:"required" yaml:"prefix" json:"prefix"`

	// Tiers is optional; omitted tiers use the default editor/debug/release values
	Tiers *logging.Tiers `mapstructure:"tiers" yaml:"tiers,omitempty" json:"tiers,omitempty"`
}

// LifecycleConfig controls the service lifecycle.
type LifecycleConfig struct {
	// FailFast stops startup at the first initialization failure
	// Default: false (failures are logged and startup continues)
	FailFast bool `mapstructure:"fail_fast" yaml:"fail_fast"`

	// QuitTimeout bounds how long a quit negotiation waits for votes.
	// A voter that has not answered when it expires counts as a veto.
	// Default: 10s
	QuitTimeout time.Duration `mapstructure:"quit_timeout" validate:"gte=0" yaml:"quit_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful teardown
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// MetricsConfig configures Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled.
	// Metrics are served by the admin API at /metrics.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// DefaultTiers returns the configured fallback tiers.
func (c LogRoutingConfig) DefaultTiers() logging.Tiers {
	if c.Defaults == nil {
		return logging.DefaultTiers()
	}
	return *c.Defaults
}

// ParsedEnvironment returns the configured environment tier.
func (c *Config) ParsedEnvironment() logging.Environment {
	env, err := logging.ParseEnvironment(c.Environment)
	if err != nil {
		return logging.EnvironmentRelease
	}
	return env
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ICECOLD_*)
//  2. Configuration file
//  3. Default values
//
// A missing configuration file is not an error: the in-memory defaults are
// returned instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v.IsSet("log_routing.defaults") {
		t := decodeDefaultTiers(v)
		cfg.LogRouting.Defaults = &t
	}

	ApplyDefaults(&cfg)
	cfg.LogRouting.CatalogFile = resolveCatalogFile(cfg.LogRouting.CatalogFile, v.ConfigFileUsed())

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  icecold config init\n\n"+
				"Or specify a custom config file:\n"+
				"  icecold <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  icecold config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use ICECOLD_ prefix and underscores
	// Example: ICECOLD_LIFECYCLE_FAIL_FAST=true
	v.SetEnvPrefix("ICECOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/icecold/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the scalar keys that can be overridden from the environment
// even when the config file omits them.
var envKeys = []string{
	"environment",
	"logging.level",
	"logging.format",
	"logging.output",
	"log_routing.catalog_file",
	"lifecycle.fail_fast",
	"lifecycle.quit_timeout",
	"lifecycle.shutdown_timeout",
	"metrics.enabled",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.insecure",
	"telemetry.sample_rate",
	"telemetry.profiling.enabled",
	"telemetry.profiling.endpoint",
	"api.enabled",
	"api.port",
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// decodeDefaultTiers reads log_routing.defaults flag by flag so that a
// partial block keeps the default value of every flag it leaves out.
func decodeDefaultTiers(v *viper.Viper) logging.Tiers {
	t := logging.DefaultTiers()
	overlay := func(prefix string, p *logging.FilterPolicy) {
		if v.IsSet(prefix + ".info") {
			p.Info = v.GetBool(prefix + ".info")
		}
		if v.IsSet(prefix + ".warning") {
			p.Warning = v.GetBool(prefix + ".warning")
		}
		if v.IsSet(prefix + ".error") {
			p.Error = v.GetBool(prefix + ".error")
		}
	}
	overlay("log_routing.defaults.editor", &t.Editor)
	overlay("log_routing.defaults.debug", &t.Debug)
	overlay("log_routing.defaults.release", &t.Release)
	return t
}

func resolveCatalogFile(path, configFile string) string {
	if path == "" || filepath.IsAbs(path) || configFile == "" {
		return path
	}
	return filepath.Join(filepath.Dir(configFile), path)
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "icecold")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "icecold")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
