// Package commands implements the icecold CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/cmd/icecold/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "icecold",
	Short: "icecold - service lifecycle and log routing runtime",
	Long: `icecold runs a set of prioritized services, routes their log output
through path-based groups with per-environment filters, and only exits
once every service has agreed to quit.

Use "icecold [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/icecold/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(quitCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
