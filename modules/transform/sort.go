package transform

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
)

// SortInput defines the arguments of sort.
type SortInput struct {
	By         []string `hcl:"by" validate:"min=1"`
	Descending bool     `hcl:"descending,optional"`
}

// OnRunSort sorts rows by the given columns. The sort is stable and nulls
// come last in both directions.
func OnRunSort(ctx context.Context, in *runner.Inputs, input *SortInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	keys := make([]int, len(input.By))
	for i, c := range input.By {
		if keys[i] = src.ColumnIndex(c); keys[i] < 0 {
			return nil, fmt.Errorf("cannot sort by unknown column %q", c)
		}
	}

	out := src.Clone()
	slices.SortStableFunc(out.Rows, func(a, b []cty.Value) int {
		for _, k := range keys {
			if c := compare(a[k], b[k], input.Descending); c != 0 {
				return c
			}
		}
		return 0
	})
	return out, nil
}

func compare(a, b cty.Value, descending bool) int {
	c := table.Compare(a, b)
	if descending && !a.IsNull() && !b.IsNull() {
		return -c
	}
	return c
}
