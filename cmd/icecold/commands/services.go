package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/output"
	"github.com/iskaald/icecold/pkg/runtime"
	"github.com/iskaald/icecold/pkg/service"
)

var servicesOutput string

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the built-in services in startup order",
	Long: `List the services the runtime would start with the current
configuration, in startup order. Teardown runs in the reverse order.

Examples:
  icecold services
  icecold services -o yaml`,
	Args: cobra.NoArgs,
	RunE: runServices,
}

func init() {
	servicesCmd.Flags().StringVarP(&servicesOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServiceEntry is one row of the startup order.
type ServiceEntry struct {
	Order        int      `json:"order" yaml:"order"`
	Name         string   `json:"name" yaml:"name"`
	Priority     string   `json:"priority" yaml:"priority"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// ServiceList renders as a table.
type ServiceList []ServiceEntry

func (l ServiceList) Headers() []string {
	return []string{"Order", "Name", "Priority", "Capabilities"}
}

func (l ServiceList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		caps := strings.Join(e.Capabilities, ", ")
		if caps == "" {
			caps = "-"
		}
		rows = append(rows, []string{strconv.Itoa(e.Order), e.Name, e.Priority, caps})
	}
	return rows
}

func runServices(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(servicesOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt := runtime.New(cfg, nil, runtime.WithSignals())
	return output.Print(cmd.OutOrStdout(), format, listServices(rt.Manifest()))
}

func listServices(m service.Manifest) ServiceList {
	list := make(ServiceList, 0, len(m))
	for i, def := range m {
		entry := ServiceEntry{
			Order:    i + 1,
			Name:     def.Name,
			Priority: service.PriorityString(def.Priority),
		}
		for _, c := range def.Capabilities {
			entry.Capabilities = append(entry.Capabilities, c.String())
		}
		list = append(list, entry)
	}
	return list
}
