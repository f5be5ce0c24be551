package transform

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// SingleRowInput defines the arguments of single_row.
type SingleRowInput struct {
	// Mode is first (default), last or exactly_one.
	Mode string `hcl:"mode,optional" validate:"omitempty,oneof=first last exactly_one"`
}

// OnRunSingleRow reduces the table to one row. An empty table is an error.
func OnRunSingleRow(ctx context.Context, in *runner.Inputs, input *SingleRowInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	if src.Len() == 0 {
		return nil, fmt.Errorf("stage '%s' expects at least one row, got none", in.Stage)
	}

	out := table.New(src.Columns...)
	switch input.Mode {
	case "last":
		out.Rows = append(out.Rows, src.Rows[src.Len()-1])
	case "exactly_one":
		if src.Len() != 1 {
			return nil, fmt.Errorf("stage '%s' expects exactly one row, got %d", in.Stage, src.Len())
		}
		fallthrough
	default:
		out.Rows = append(out.Rows, src.Rows[0])
	}
	return out, nil
}
