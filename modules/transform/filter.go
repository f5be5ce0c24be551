package transform

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pipegrid/internal/expr"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// FilterInput defines the arguments of filter.
type FilterInput struct {
	Where string `hcl:"where" validate:"required"`
}

// OnRunFilter keeps the rows where the predicate is true. Null counts as
// false.
func OnRunFilter(ctx context.Context, in *runner.Inputs, input *FilterInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	where, err := expr.Compile(input.Where)
	if err != nil {
		return nil, err
	}

	out := table.New(src.Columns...)
	for i, row := range src.Rows {
		if err := runner.Checkpoint(ctx, i); err != nil {
			return nil, err
		}
		ok, err := where.EvalBool(src.Row(i), in.Vars)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	in.Log().Debug("Filtered rows.", "kept", out.Len(), "dropped", src.Len()-out.Len())
	return out, nil
}
