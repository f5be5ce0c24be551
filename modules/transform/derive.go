package transform

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/pipegrid/internal/expr"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
)

// DeriveInput defines the arguments of derive.
type DeriveInput struct {
	// Columns maps a column name to a row expression.
	Columns map[string]string `hcl:"columns" validate:"min=1"`
	// Keep, when set, is the final list of columns.
	Keep []string `hcl:"keep,optional"`
}

type derivedColumn struct {
	name string
	expr *expr.Expr
}

// OnRunDerive computes new columns row by row. A derived column may reference
// other derived columns; they are evaluated in dependency order, otherwise by
// name.
func OnRunDerive(ctx context.Context, in *runner.Inputs, input *DeriveInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	order, err := deriveOrder(input.Columns)
	if err != nil {
		return nil, err
	}

	out := src.Clone()
	for _, col := range order {
		values := make([]cty.Value, out.Len())
		for i := range out.Rows {
			if err := runner.Checkpoint(ctx, i); err != nil {
				return nil, err
			}
			v, err := col.expr.Eval(out.Row(i), in.Vars)
			if err != nil {
				return nil, fmt.Errorf("column %q, row %d: %w", col.name, i+1, err)
			}
			if v, err = cell(v); err != nil {
				return nil, fmt.Errorf("column %q, row %d: %w", col.name, i+1, err)
			}
			values[i] = v
		}
		if err := out.SetColumn(col.name, values); err != nil {
			return nil, err
		}
	}

	if len(input.Keep) > 0 {
		return out.Project(input.Keep...)
	}
	return out, nil
}

// deriveOrder compiles the expressions and sorts them so that every column
// comes after the derived columns it references.
func deriveOrder(columns map[string]string) ([]derivedColumn, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := make(map[string]*expr.Expr, len(columns))
	for _, name := range names {
		e, err := expr.Compile(columns[name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		compiled[name] = e
	}

	var order []derivedColumn
	state := make(map[string]int)
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case 1:
			return fmt.Errorf("derived columns reference each other in a cycle: %v", append(path, name))
		case 2:
			return nil
		}
		state[name] = 1
		for _, ref := range compiled[name].Variables() {
			if ref != name && compiled[ref] != nil {
				if err := visit(ref, append(path, name)); err != nil {
					return err
				}
			}
		}
		state[name] = 2
		order = append(order, derivedColumn{name: name, expr: compiled[name]})
		return nil
	}
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

var primitive = []cty.Type{cty.String, cty.Number, cty.Bool}

// cell checks that an expression result can be stored in a table.
func cell(v cty.Value) (cty.Value, error) {
	if v.IsNull() {
		if slices.Contains(primitive, v.Type()) {
			return v, nil
		}
		return cty.NullVal(cty.String), nil
	}
	if !v.IsKnown() || !slices.Contains(primitive, v.Type()) {
		return cty.NilVal, fmt.Errorf("expression must produce a string, number or bool, got %s", v.Type().FriendlyName())
	}
	return v, nil
}
