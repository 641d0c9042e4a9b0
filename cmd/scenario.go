package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file>...",
	Short: "Replay planning scenarios and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			res := scenarios.Run(sc)
			if res.Passed() {
				fmt.Fprintf(out, "PASS %s (cost %.2f, solver %s)\n", sc.Name, res.Plan.Summary.ProjectedCost, res.Plan.Summary.Solver)
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s\n", sc.Name)
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  %s\n", f)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
