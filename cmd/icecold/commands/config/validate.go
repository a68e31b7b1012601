package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/output"
	"github.com/iskaald/icecold/pkg/api"
	"github.com/iskaald/icecold/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the icecold configuration file.

Checks for syntax errors, missing required fields, invalid values and
overlapping log group prefixes. The external catalog file, if set, is
loaded and checked as well.

Examples:
  # Validate default config
  icecold config validate

  # Validate specific config file
  icecold config validate --config /etc/icecold/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	displayPath := path
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	catalog, _, catalogErr := config.NewCatalogSource(cfg.LogRouting).LoadCatalog()
	if catalogErr != nil {
		return fmt.Errorf("log routing catalog: %w", catalogErr)
	}

	var warnings []string
	if !cfg.API.CoversQuit(cfg.Lifecycle.QuitTimeout) {
		warnings = append(warnings, fmt.Sprintf(
			"api.write_timeout (%s) does not cover lifecycle.quit_timeout (%s) plus %s - POST /quit responses may be cut off",
			cfg.API.WriteTimeout, cfg.Lifecycle.QuitTimeout, api.QuitWriteHeadroom))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.SampleRate == 0 {
		warnings = append(warnings, "telemetry is enabled with sample_rate 0 - no traces will be recorded")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	apiPort := "disabled"
	if cfg.API.IsEnabled() {
		apiPort = strconv.Itoa(cfg.API.Port)
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	return output.KeyValueTable(out, [][2]string{
		{"Environment", cfg.Environment},
		{"Log groups", strconv.Itoa(catalog.Len())},
		{"Fail fast", strconv.FormatBool(cfg.Lifecycle.FailFast)},
		{"Quit timeout", cfg.Lifecycle.QuitTimeout.String()},
		{"API port", apiPort},
		{"Log level", cfg.Logging.Level},
	})
}
