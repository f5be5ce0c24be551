package cli

import (
	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/specialistvlad/pipegrid/internal/report"
	"github.com/spf13/cobra"
)

func renderCmd(opts *rootOptions) *cobra.Command {
	var reportPath string

	c := &cobra.Command{
		Use:   "render [DIAGRAM]",
		Short: "Print the diagram as canonical DOT",
		Long: `render prints the diagram as canonical DOT. With --report, nodes are
filled by the stage statuses recorded in a previous run report.`,
		Args: diagramArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses map[string]string
			if reportPath != "" {
				rep, err := report.Read(reportPath)
				if err != nil {
					return failure(err)
				}
				statuses = rep.Statuses()
			}

			a, err := opts.newApp(cmd, args, app.Config{})
			if err != nil {
				return err
			}
			return failure(a.Render(cmd.Context(), cmd.OutOrStdout(), statuses))
		},
	}
	c.Flags().StringVar(&reportPath, "report", "", "Colour nodes by the statuses in this run report")
	return c
}
