package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/spf13/cobra"
)

func runnersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runners",
		Short: "List the runners stages can be bound to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Runners need no diagram; a placeholder satisfies config validation.
			a, err := opts.newApp(cmd, []string{"-"}, app.Config{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range a.Runners() {
				fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Description)
			}
			return tw.Flush()
		},
	}
}
