package cli

import (
	"context"
	"time"

	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/spf13/cobra"
)

func runCmd(opts *rootOptions) *cobra.Command {
	var (
		workers       int
		failFast      bool
		reportPath    string
		renderPath    string
		watch         bool
		watchDebounce time.Duration
		healthPort    int
	)

	c := &cobra.Command{
		Use:   "run [DIAGRAM]",
		Short: "Execute a pipeline diagram",
		Args:  diagramArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := app.Config{
				WorkerCount:     workers,
				ReportPath:      reportPath,
				RenderPath:      renderPath,
				Watch:           watch,
				WatchDebounce:   watchDebounce,
				HealthcheckPort: healthPort,
			}
			// Only an explicit flag overrides fail_fast from the pipeline block.
			if cmd.Flags().Changed("fail-fast") {
				base.FailFast = &failFast
			}

			a, err := opts.newApp(cmd, args, base)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))

			if watch {
				return failure(a.Watch(cmd.Context()))
			}
			_, err = a.Run(cmd.Context())
			return failure(err)
		},
	}

	f := c.Flags()
	f.IntVar(&workers, "workers", 0, "Concurrent stage workers (default from the pipeline block, else 4)")
	f.BoolVar(&failFast, "fail-fast", false, "Stop scheduling stages after the first failure")
	f.StringVar(&reportPath, "report", "", "Write a run report to this .yaml or .json file")
	f.StringVar(&renderPath, "render", "", "Write the diagram coloured by stage status to this DOT file")
	f.BoolVar(&watch, "watch", false, "Re-run whenever the diagram or a binding file changes")
	f.DurationVar(&watchDebounce, "watch-debounce", app.DefaultWatchDebounce, "How long file changes must settle before a re-run")
	f.IntVar(&healthPort, "healthcheck-port", 0, "Port for the /health and /metrics server; 0 disables it")
	return c
}
