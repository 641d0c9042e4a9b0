package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/app/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the modules that can be selected in the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, f := range plugins.Known() {
			fmt.Fprintf(out, "%s:\n", f.Key)
			for _, t := range f.Types {
				fmt.Fprintf(out, "  - %s\n", t)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
