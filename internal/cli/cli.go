package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

func failure(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
}

// Execute runs the command line with args. Command output goes to outW and
// logs to errW. Every non-nil error is an *ExitError; errors cobra reports
// itself (unknown flags, wrong argument counts) are usage errors.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return usageError(err)
}

// NewRootCommand builds the pipegrid command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &rootOptions{errW: errW}

	cmd := &cobra.Command{
		Use:   "pipegrid",
		Short: "Run Graphviz pipeline diagrams as data pipelines",
		Long: `pipegrid executes the stages of a Graphviz DOT pipeline diagram.
Each node is bound to a runner by HCL binding files; nodes without a binding
pass their input through unchanged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(outW)
	cmd.SetErr(errW)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.StringSliceVarP(&opts.bindings, "bindings", "b", nil, "Binding .hcl file or directory (repeatable)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json")

	cmd.AddCommand(
		runCmd(opts),
		validateCmd(opts),
		planCmd(opts),
		renderCmd(opts),
		runnersCmd(opts),
	)
	return cmd
}
