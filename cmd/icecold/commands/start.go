package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/internal/telemetry"
	"github.com/iskaald/icecold/pkg/config"
	"github.com/iskaald/icecold/pkg/metrics"
	"github.com/iskaald/icecold/pkg/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the icecold runtime",
	Long: `Start the icecold runtime in the foreground with the built-in services.

The process runs until a quit is granted. SIGINT, SIGTERM and POST /quit on
the admin API each start a negotiation; any service may veto it, in which
case the runtime keeps running.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/icecold/config.yaml. Without a
configuration file the built-in defaults are used.

Examples:
  # Start with the default configuration
  icecold start

  # Start with custom config file
  icecold start --config /etc/icecold/config.yaml

  # Start with environment variable overrides
  ICECOLD_ENVIRONMENT=debug ICECOLD_LOGGING_LEVEL=DEBUG icecold start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx := context.Background()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "icecold",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "icecold",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	// Must run before the runtime is built so its collectors register.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	logStartupSummary(cfg)

	rt := runtime.New(cfg, nil)
	if err := rt.Run(ctx); err != nil {
		logger.Error("Runtime error", "error", err)
		return err
	}
	return nil
}

func logStartupSummary(cfg *config.Config) {
	logger.Info("icecold starting", "version", Version, "environment", cfg.Environment)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log routing",
		"groups", len(cfg.LogRouting.Groups),
		"catalog_file", cfg.LogRouting.CatalogFile)

	if metrics.IsEnabled() {
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	if cfg.API.IsEnabled() {
		logger.Info("Admin API enabled", "port", cfg.API.Port)
	} else {
		logger.Info("Admin API disabled")
	}
}
