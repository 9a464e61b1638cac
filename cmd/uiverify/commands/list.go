package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/uiverify/internal/suites"
)

// list: print scenario names and descriptions.
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runnable scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := suites.LoadRegistry(cfg.Scenarios.Paths)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sc := range registry.All() {
				mode := ""
				if sc.Strict {
					mode = "strict"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sc.Name, sc.URL, mode, sc.Description)
			}
			return tw.Flush()
		},
	}
}
