package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iskaald/icecold/internal/cli/output"
	"github.com/iskaald/icecold/pkg/apiclient"
)

var (
	quitAPIURL string
	quitOutput string
)

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Ask a running icecold instance to quit",
	Long: `Send POST /quit to a running instance's admin API.

Every service is told that a quit is coming, then every service that can
veto is asked. The instance only shuts down if none of them object.

Examples:
  icecold quit
  icecold quit --api http://127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runQuit,
}

func init() {
	quitCmd.Flags().StringVar(&quitAPIURL, "api", "", "Admin API base URL (default: http://127.0.0.1:<api.port>)")
	quitCmd.Flags().StringVarP(&quitOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// QuitReport renders a quit response as a table.
type QuitReport struct {
	Outcome       string   `json:"outcome" yaml:"outcome"`
	NegotiationID string   `json:"negotiation_id,omitempty" yaml:"negotiation_id,omitempty"`
	Consulted     int      `json:"consulted" yaml:"consulted"`
	Vetoes        []string `json:"vetoes,omitempty" yaml:"vetoes,omitempty"`
	ShutdownError string   `json:"shutdown_error,omitempty" yaml:"shutdown_error,omitempty"`
}

func (r QuitReport) Headers() []string {
	return []string{"Field", "Value"}
}

func (r QuitReport) Rows() [][]string {
	rows := [][]string{
		{"Outcome", r.Outcome},
		{"Negotiation", r.NegotiationID},
		{"Voters consulted", fmt.Sprintf("%d", r.Consulted)},
	}
	for _, v := range r.Vetoes {
		rows = append(rows, []string{"Veto", v})
	}
	if r.ShutdownError != "" {
		rows = append(rows, []string{"Shutdown error", r.ShutdownError})
	}
	return rows
}

func runQuit(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(quitOutput)
	if err != nil {
		return err
	}

	baseURL := quitAPIURL
	if baseURL == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.API.Port)
	}

	res, err := apiclient.New(baseURL).Quit()
	if res == nil {
		return fmt.Errorf("failed to reach %s: %w", baseURL, err)
	}

	report := QuitReport{
		Outcome:       res.Outcome,
		NegotiationID: res.NegotiationID,
		Consulted:     res.Consulted,
		ShutdownError: res.ShutdownError,
	}
	for _, v := range res.Vetoes {
		report.Vetoes = append(report.Vetoes, fmt.Sprintf("%s: %s", v.Service, v.Reason))
	}
	if perr := output.Print(cmd.OutOrStdout(), format, report); perr != nil {
		return perr
	}

	if err != nil {
		return fmt.Errorf("quit %s", res.Outcome)
	}
	return nil
}
