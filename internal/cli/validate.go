package cli

import (
	"fmt"

	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/spf13/cobra"
)

func validateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [DIAGRAM]",
		Short: "Check a diagram and its bindings without running anything",
		Args:  diagramArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, args, app.Config{})
			if err != nil {
				return err
			}
			if err := a.Validate(cmd.Context()); err != nil {
				return failure(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
