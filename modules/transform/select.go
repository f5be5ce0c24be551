package transform

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// SelectInput defines the arguments of select.
type SelectInput struct {
	// Columns to keep, in output order. Empty keeps every column.
	Columns []string `hcl:"columns,optional" validate:"unique"`
	// Rename maps an existing column name to a new one.
	Rename map[string]string `hcl:"rename,optional"`
}

// OnRunSelect projects and renames columns.
func OnRunSelect(ctx context.Context, in *runner.Inputs, input *SelectInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	out := src.Clone()
	if len(input.Columns) > 0 {
		if out, err = src.Project(input.Columns...); err != nil {
			return nil, err
		}
	}

	// Resolve every source first so swaps and chains rename the original
	// columns rather than each other's results.
	names := slices.Clone(out.Columns)
	for from, to := range input.Rename {
		idx := out.ColumnIndex(from)
		if idx < 0 {
			return nil, fmt.Errorf("cannot rename unknown column %q", from)
		}
		names[idx] = to
	}
	out.Columns = names
	seen := make(map[string]bool, len(out.Columns))
	for _, c := range out.Columns {
		if seen[c] {
			return nil, fmt.Errorf("rename produces duplicate column %q", c)
		}
		seen[c] = true
	}
	return out, nil
}
