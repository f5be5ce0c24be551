package cli

import (
	"io"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/specialistvlad/pipegrid/internal/hcl"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	bindings  []string
	logLevel  string
	logFormat string

	errW io.Writer
}

// config merges the shared flags and the optional DIAGRAM argument into
// base and validates the result.
func (o *rootOptions) config(args []string, base app.Config) (*app.Config, error) {
	if len(args) > 0 {
		base.DiagramPath = args[0]
	}
	base.BindingPaths = o.bindings
	base.LogLevel = strings.ToLower(o.logLevel)
	base.LogFormat = strings.ToLower(o.logFormat)
	base.LogOutput = o.errW

	cfg, err := app.NewConfig(base)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newApp builds an App for cmd, writing command output to cmd's output.
func (o *rootOptions) newApp(cmd *cobra.Command, args []string, base app.Config) (*app.App, error) {
	cfg, err := o.config(args, base)
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(cmd.OutOrStdout(), cfg, hcl.NewLoader())
	if err != nil {
		return nil, failure(err)
	}
	return a, nil
}

// diagramArg accepts at most one positional DIAGRAM argument.
func diagramArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return usageError(err)
	}
	return nil
}
