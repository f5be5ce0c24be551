package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific binding loader.
type Loader interface {
	// Load reads binding files from the given paths, translates them into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for format-specific argument decoding. It is the
// bridge between the raw configuration of a stage and the Go input struct of
// the runner that executes it.
type Converter interface {
	// EvalContext builds the variables and functions available to argument
	// expressions during one run.
	EvalContext(model *Model, runID string) *hcl.EvalContext

	// DecodeArguments decodes the stage's arguments into target, which must be
	// a pointer to the runner's input struct, and validates the result.
	DecodeArguments(ctx context.Context, stage *Stage, evalCtx *hcl.EvalContext, target any) error
}
