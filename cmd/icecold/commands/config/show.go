package config

import (
	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/output"
	"github.com/iskaald/icecold/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective icecold configuration, with defaults and
environment overrides applied.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show config as YAML
  icecold config show

  # Show as JSON
  icecold config show --output json

  # Show specific config file
  icecold config show --config /etc/icecold/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json|table)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	return output.Print(cmd.OutOrStdout(), format, cfg)
}
