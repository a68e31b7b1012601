package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/output"
	"github.com/iskaald/icecold/pkg/config"
	"github.com/iskaald/icecold/pkg/logging"
)

var (
	routeLevel  string
	routeEnv    string
	routeOutput string
)

var routeCmd = &cobra.Command{
	Use:   "route <path>",
	Short: "Explain how a caller path is routed",
	Long: `Resolve the log group for a caller path and show whether a message at
the given level would be emitted.

The routing table is built from the log_routing section of the
configuration, including the external catalog file if one is set.

Examples:
  # Which group handles the mixer, and does info pass in release?
  icecold route /src/audio/mixer.go

  # Check a warning in the editor tier
  icecold route /src/audio/mixer.go --level warning --env editor

  # Machine-readable output
  icecold route /src/audio/mixer.go -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVarP(&routeLevel, "level", "l", "info", "Message level (info|warning|error)")
	routeCmd.Flags().StringVarP(&routeEnv, "env", "e", "", "Environment tier (editor|debug|release, default: from config)")
	routeCmd.Flags().StringVarP(&routeOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// RouteResult is the routing decision for one caller path.
type RouteResult struct {
	Path        string               `json:"path" yaml:"path"`
	Level       string               `json:"level" yaml:"level"`
	Environment string               `json:"environment" yaml:"environment"`
	Group       string               `json:"group" yaml:"group"`
	Prefix      string               `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Matched     bool                 `json:"matched" yaml:"matched"`
	Policy      logging.FilterPolicy `json:"policy" yaml:"policy"`
	Emit        bool                 `json:"emit" yaml:"emit"`
	Warning     string               `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func (r RouteResult) Headers() []string {
	return []string{"Field", "Value"}
}

func (r RouteResult) Rows() [][]string {
	rows := [][]string{
		{"Path", r.Path},
		{"Level", r.Level},
		{"Environment", r.Environment},
		{"Group", r.Group},
		{"Prefix", r.Prefix},
		{"Info", output.Flag(r.Policy.Info)},
		{"Warning", output.Flag(r.Policy.Warning)},
		{"Error", output.Flag(r.Policy.Error)},
		{"Emit", fmt.Sprintf("%t", r.Emit)},
	}
	if r.Warning != "" {
		rows = append(rows, []string{"Catalog", r.Warning})
	}
	return rows
}

func runRoute(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(routeOutput)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(routeLevel)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env := cfg.ParsedEnvironment()
	if routeEnv != "" {
		if env, err = logging.ParseEnvironment(routeEnv); err != nil {
			return err
		}
	}

	result, err := explainRoute(cfg, env, level, args[0])
	if err != nil {
		return err
	}
	return output.Print(cmd.OutOrStdout(), format, result)
}

// explainRoute builds the routing table the logging service would install
// and resolves path against it. A catalog that fails to load is reported in
// the result, with routing on the defaults, as it would be at runtime.
func explainRoute(cfg *config.Config, env logging.Environment, level logging.Level, path string) (RouteResult, error) {
	catalog, defaults, loadErr := config.NewCatalogSource(cfg.LogRouting).LoadCatalog()

	router := logging.NewRouter(defaults,
		logging.WithEnvironment(logging.StaticEnvironment(env)),
		logging.WithSink(logging.NewMemorySink()),
	)
	if loadErr == nil {
		if err := router.Install(catalog, defaults); err != nil {
			return RouteResult{}, err
		}
	}

	d := router.Explain(level, path)
	result := RouteResult{
		Path:        path,
		Level:       level.String(),
		Environment: env.String(),
		Group:       d.Group,
		Prefix:      d.Prefix,
		Matched:     d.Matched,
		Policy:      d.Policy,
		Emit:        d.Emit,
	}
	if loadErr != nil {
		result.Warning = loadErr.Error()
	}
	return result, nil
}
