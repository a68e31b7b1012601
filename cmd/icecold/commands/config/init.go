package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/prompt"
	"github.com/iskaald/icecold/pkg/config"
	"github.com/iskaald/icecold/pkg/logging"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample icecold configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/icecold/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  icecold config init

  # Initialize with custom path
  icecold config init --config /etc/icecold/config.yaml

  # Answer a few questions instead of taking every default
  icecold config init --interactive

  # Force overwrite existing config
  icecold config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.SampleConfig()
	if initInteractive {
		if err := askConfig(cfg); err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("aborted")
			}
			return err
		}
	}

	if err := config.WriteConfig(cfg, path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Add log groups under log_routing.groups")
	_, _ = fmt.Fprintln(out, "  2. Check the file with: icecold config validate")
	_, _ = fmt.Fprintf(out, "  3. Start the runtime with: icecold start --config %s\n", path)
	return nil
}

func askConfig(cfg *config.Config) error {
	env, err := prompt.Select("Environment", []prompt.Option{
		{Label: "release", Value: logging.EnvironmentRelease.String(), Description: "errors only by default"},
		{Label: "debug", Value: logging.EnvironmentDebug.String(), Description: "everything by default"},
		{Label: "editor", Value: logging.EnvironmentEditor.String(), Description: "everything by default, for local tooling"},
	})
	if err != nil {
		return err
	}
	cfg.Environment = env

	level, err := prompt.Select("Structured log level", []prompt.Option{
		{Label: "INFO", Value: "INFO", Description: "lifecycle summaries"},
		{Label: "DEBUG", Value: "DEBUG", Description: "every service transition and vote"},
		{Label: "WARN", Value: "WARN", Description: "problems only"},
		{Label: "ERROR", Value: "ERROR", Description: "failures only"},
	})
	if err != nil {
		return err
	}
	cfg.Logging.Level = level

	enableAPI, err := prompt.Confirm("Enable the admin API", true)
	if err != nil {
		return err
	}
	cfg.API.Enabled = &enableAPI
	if enableAPI {
		if cfg.API.Port, err = prompt.Port("Admin API port", cfg.API.Port); err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled, err = prompt.Confirm("Expose Prometheus metrics", true); err != nil {
		return err
	}

	addGroup, err := prompt.Confirm("Add a log group", false)
	if err != nil || !addGroup {
		return err
	}
	name, err := prompt.Input("Group name", "", required("group name"))
	if err != nil {
		return err
	}
	prefix, err := prompt.Input("Path prefix", "", required("path prefix"))
	if err != nil {
		return err
	}
	cfg.LogRouting.Groups = append(cfg.LogRouting.Groups, config.GroupConfig{
		Name:   name,
		Prefix: prefix,
	})
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
