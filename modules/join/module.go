// Package join provides the two-input join runner.
package join

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// DefaultSuffix is appended to right-side columns whose name is taken.
const DefaultSuffix = "_right"

// Input defines the arguments of join. The first input table is the left
// side and the second is the right side.
type Input struct {
	// Kind is inner (default), left, cross or asof.
	Kind string `hcl:"kind,optional" validate:"omitempty,oneof=inner left cross asof"`
	// LeftOn and RightOn are the equi-join keys. RightOn defaults to LeftOn.
	LeftOn  []string `hcl:"left_on,optional"`
	RightOn []string `hcl:"right_on,optional"`
	// AsOfLeft and AsOfRight are the ordered columns of an asof join.
	AsOfLeft  string `hcl:"as_of_left,optional" validate:"required_if=Kind asof"`
	AsOfRight string `hcl:"as_of_right,optional" validate:"required_if=Kind asof"`
	Suffix    string `hcl:"suffix,optional"`
}

type plan struct {
	left, right  *table.Table
	leftKeys     []int
	rightKeys    []int
	rightKept    []int
	columns      []string
	rightNulls   []cty.Value
	asOfL, asOfR int
}

// OnRunJoin joins the first input (left) with the second (right).
//
// inner keeps matching pairs; left also keeps unmatched left rows with null
// right cells; cross pairs every row with every row; asof matches each left
// row with the last right row, among rows equal on the keys, whose as_of_right
// is not after its as_of_left, and keeps unmatched left rows like left does.
// Null keys never match.
func OnRunJoin(ctx context.Context, in *runner.Inputs, input *Input) (*table.Table, error) {
	left, right, err := in.Pair()
	if err != nil {
		return nil, err
	}
	p, err := newPlan(left, right, input)
	if err != nil {
		return nil, err
	}

	out := table.New(p.columns...)
	switch input.Kind {
	case "cross":
		err = p.cross(ctx, out)
	case "asof":
		err = p.asof(ctx, out)
	default:
		err = p.hash(ctx, out, input.Kind == "left")
	}
	if err != nil {
		return nil, err
	}

	in.Log().Debug("Joined tables.", "kind", input.Kind, "left", p.left.Len(), "right", p.right.Len(), "rows", out.Len())
	return out, nil
}

func newPlan(left, right *table.Table, input *Input) (*plan, error) {
	if input.Kind == "" {
		input.Kind = "inner"
	}
	suffix := input.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	rightOn := input.RightOn
	if len(rightOn) == 0 {
		rightOn = input.LeftOn
	}
	if len(rightOn) != len(input.LeftOn) {
		return nil, fmt.Errorf("left_on has %d columns but right_on has %d", len(input.LeftOn), len(rightOn))
	}
	if (input.Kind == "inner" || input.Kind == "left") && len(input.LeftOn) == 0 {
		return nil, fmt.Errorf("%s join requires left_on", input.Kind)
	}

	p := &plan{left: left, right: right, asOfL: -1, asOfR: -1}
	var err error
	if p.leftKeys, err = indexes(left, "left", input.LeftOn); err != nil {
		return nil, err
	}
	if p.rightKeys, err = indexes(right, "right", rightOn); err != nil {
		return nil, err
	}
	if input.Kind == "asof" {
		if p.asOfL = left.ColumnIndex(input.AsOfLeft); p.asOfL < 0 {
			return nil, fmt.Errorf("unknown left column %q", input.AsOfLeft)
		}
		if p.asOfR = right.ColumnIndex(input.AsOfRight); p.asOfR < 0 {
			return nil, fmt.Errorf("unknown right column %q", input.AsOfRight)
		}
	}

	p.columns = slices.Clone(left.Columns)
	for j, name := range right.Columns {
		if k := slices.Index(rightOn, name); k >= 0 && input.LeftOn[k] == name {
			continue
		}
		if slices.Contains(p.columns, name) {
			name += suffix
			if slices.Contains(p.columns, name) {
				return nil, fmt.Errorf("column %q exists on both sides even with suffix %q", name, suffix)
			}
		}
		p.columns = append(p.columns, name)
		p.rightKept = append(p.rightKept, j)
		p.rightNulls = append(p.rightNulls, cty.NullVal(columnType(right, j)))
	}
	return p, nil
}

func indexes(t *table.Table, side string, names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		if out[i] = t.ColumnIndex(n); out[i] < 0 {
			return nil, fmt.Errorf("unknown %s column %q", side, n)
		}
	}
	return out, nil
}

// columnType is the type of the first non-null cell, or String.
func columnType(t *table.Table, col int) cty.Type {
	for _, row := range t.Rows {
		if !row[col].IsNull() {
			return row[col].Type()
		}
	}
	return cty.String
}

func (p *plan) combine(l, r []cty.Value) []cty.Value {
	row := make([]cty.Value, 0, len(p.columns))
	row = append(row, l...)
	if r == nil {
		return append(row, p.rightNulls...)
	}
	for _, j := range p.rightKept {
		row = append(row, r[j])
	}
	return row
}

// key returns false when any key cell is null.
func key(row []cty.Value, cols []int) (string, bool) {
	vals := make([]cty.Value, len(cols))
	for i, c := range cols {
		if row[c].IsNull() {
			return "", false
		}
		vals[i] = row[c]
	}
	return table.Key(vals...), true
}

func (p *plan) buckets() map[string][][]cty.Value {
	out := make(map[string][][]cty.Value)
	for _, r := range p.right.Rows {
		if k, ok := key(r, p.rightKeys); ok {
			out[k] = append(out[k], r)
		}
	}
	return out
}

func (p *plan) cross(ctx context.Context, out *table.Table) error {
	for _, l := range p.left.Rows {
		for _, r := range p.right.Rows {
			if err := runner.Checkpoint(ctx, len(out.Rows)); err != nil {
				return err
			}
			out.Rows = append(out.Rows, p.combine(l, r))
		}
	}
	return nil
}

func (p *plan) hash(ctx context.Context, out *table.Table, keepUnmatched bool) error {
	buckets := p.buckets()
	for i, l := range p.left.Rows {
		if err := runner.Checkpoint(ctx, i); err != nil {
			return err
		}
		var matches [][]cty.Value
		if k, ok := key(l, p.leftKeys); ok {
			matches = buckets[k]
		}
		for _, r := range matches {
			out.Rows = append(out.Rows, p.combine(l, r))
		}
		if len(matches) == 0 && keepUnmatched {
			out.Rows = append(out.Rows, p.combine(l, nil))
		}
	}
	return nil
}

func (p *plan) asof(ctx context.Context, out *table.Table) error {
	buckets := p.buckets()
	for k := range buckets {
		rows := buckets[k]
		rows = slices.DeleteFunc(rows, func(r []cty.Value) bool { return r[p.asOfR].IsNull() })
		slices.SortStableFunc(rows, func(a, b []cty.Value) int {
			return table.Compare(a[p.asOfR], b[p.asOfR])
		})
		buckets[k] = rows
	}

	for i, l := range p.left.Rows {
		if err := runner.Checkpoint(ctx, i); err != nil {
			return err
		}
		var match []cty.Value
		k, ok := key(l, p.leftKeys)
		if at := l[p.asOfL]; ok && !at.IsNull() {
			rows := buckets[k]
			// first index whose as-of value is after the left one
			i := sort.Search(len(rows), func(i int) bool {
				return table.Compare(rows[i][p.asOfR], at) > 0
			})
			if i > 0 {
				match = rows[i-1]
			}
		}
		out.Rows = append(out.Rows, p.combine(l, match))
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("join", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunJoin,
		Description: "Join two upstream tables (inner, left, cross or asof).",
	})
}
