package cmd

import (
	"fmt"

	"github.com/charmbracelet/nospawn/internal/probe"
	"github.com/charmbracelet/nospawn/internal/sandbox"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Activate the sandbox and try to escape it",
		Long: "Activate the sandbox, then attempt every process creation path " +
			"available to this platform. Exits with an error if any escape succeeds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			noActivate, _ := cmd.Flags().GetBool("no-activate")

			var activation *sandbox.Result
			if !noActivate {
				r, err := activate(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				activation = &r
			}

			target, err := probe.SelfTarget("--version")
			if err != nil {
				return err
			}
			runner := probe.NewRunner(probe.Battery(target))
			results := runner.RunAll(cmd.Context())

			w := cmd.OutOrStdout()
			if asJSON {
				fmt.Fprintln(w, probeResultsJSON(activation, results))
			} else {
				if activation != nil {
					printResult(w, *activation)
				}
				printProbeResults(w, results)
			}

			if _, failed := runner.Summary(); failed > 0 {
				return fmt.Errorf("%d of %d probes escaped", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().Bool("no-activate", false, "Run the probes without activating the sandbox")
	addRequireFlag(cmd)
	return cmd
}
