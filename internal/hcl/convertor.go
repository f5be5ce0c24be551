package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/expr"
	"github.com/zclconf/go-cty/cty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	// Getenv returns the environment as KEY=VALUE pairs. Nil means os.Environ.
	Getenv   func() []string
	validate *validator.Validate
}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// EvalContext exposes `env`, `var` and `pipeline` plus the expression
// function table.
func (c *Converter) EvalContext(model *config.Model, runID string) *hcl.EvalContext {
	pipeline := &config.Pipeline{}
	if model != nil && model.Pipeline != nil {
		pipeline = model.Pipeline
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": c.envValue(),
			"var": stringMap(pipeline.Vars),
			"pipeline": cty.ObjectVal(map[string]cty.Value{
				"name":   cty.StringVal(pipeline.Name),
				"run_id": cty.StringVal(runID),
			}),
		},
		Functions: expr.Functions(),
	}
}

// loadContext is the evaluation context for pipeline and stage attributes,
// which are decoded before any run exists.
func (c *Converter) loadContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": c.envValue()},
		Functions: expr.Functions(),
	}
}

// DecodeArguments decodes the arguments block of stage into target and
// validates it. A stage without an arguments block decodes an empty body, so
// required attributes still report an error.
func (c *Converter) DecodeArguments(ctx context.Context, stage *config.Stage, evalCtx *hcl.EvalContext, target any) error {
	body := hcl.EmptyBody()
	id := ""
	if stage != nil {
		id = stage.ID
		if stage.Arguments != nil {
			body = stage.Arguments
		}
	}

	if diags := gohcl.DecodeBody(body, evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("stage '%s': invalid arguments: %w", id, diags)
	}
	if err := c.validate.StructCtx(ctx, target); err != nil {
		return fmt.Errorf("stage '%s': invalid arguments: %w", id, err)
	}
	ctxlog.FromContext(ctx).Debug("Decoded stage arguments.", "stage", id)
	return nil
}

func (c *Converter) envValue() cty.Value {
	environ := os.Environ
	if c.Getenv != nil {
		environ = c.Getenv
	}
	env := make(map[string]string)
	for _, kv := range environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return stringMap(env)
}

func stringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}
