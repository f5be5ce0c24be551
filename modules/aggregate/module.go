// Package aggregate provides the group-by aggregation runner.
package aggregate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of aggregate.
type Input struct {
	GroupBy []string `hcl:"group_by,optional" validate:"unique"`
	// Metrics maps an output column to an aggregate call such as "sum(amount)".
	Metrics map[string]string `hcl:"metrics" validate:"min=1"`
}

var metricPattern = regexp.MustCompile(`^\s*(count|sum|avg|min|max|first|last)\s*\(\s*([^)]*?)\s*\)\s*$`)

type metric struct {
	name   string
	fn     string
	column int // -1 for count()
}

// accumulator holds the running state of one metric in one group.
type accumulator struct {
	count int64
	sum   cty.Value
	best  cty.Value
	first cty.Value
	last  cty.Value
	seen  bool
}

type group struct {
	key  []cty.Value
	accs []*accumulator
}

// OnRunAggregate groups rows by group_by and computes every metric per
// group. Groups are emitted in order of first appearance.
func OnRunAggregate(ctx context.Context, in *runner.Inputs, input *Input) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	metrics, err := parseMetrics(src, input.Metrics)
	if err != nil {
		return nil, err
	}
	keyCols := make([]int, len(input.GroupBy))
	for i, c := range input.GroupBy {
		if keyCols[i] = src.ColumnIndex(c); keyCols[i] < 0 {
			return nil, fmt.Errorf("cannot group by unknown column %q", c)
		}
	}

	newGroup := func(key []cty.Value) *group {
		g := &group{key: key, accs: make([]*accumulator, len(metrics))}
		for i := range g.accs {
			g.accs[i] = &accumulator{}
		}
		return g
	}

	var groups []*group
	index := make(map[string]*group)
	for r, row := range src.Rows {
		if err := runner.Checkpoint(ctx, r); err != nil {
			return nil, err
		}
		key := make([]cty.Value, len(keyCols))
		for i, c := range keyCols {
			key[i] = row[c]
		}
		k := table.Key(key...)
		g, ok := index[k]
		if !ok {
			g = newGroup(key)
			index[k] = g
			groups = append(groups, g)
		}
		for i, m := range metrics {
			if err := g.accs[i].add(m, row); err != nil {
				return nil, fmt.Errorf("metric %q: %w", m.name, err)
			}
		}
	}
	if len(groups) == 0 && len(keyCols) == 0 {
		groups = append(groups, newGroup(nil))
	}

	columns := append([]string(nil), input.GroupBy...)
	for _, m := range metrics {
		columns = append(columns, m.name)
	}
	out := table.New(columns...)
	for _, g := range groups {
		row := append([]cty.Value(nil), g.key...)
		for i, m := range metrics {
			v, err := g.accs[i].result(m)
			if err != nil {
				return nil, fmt.Errorf("metric %q: %w", m.name, err)
			}
			row = append(row, v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func parseMetrics(src *table.Table, specs map[string]string) ([]metric, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	metrics := make([]metric, 0, len(names))
	for _, name := range names {
		match := metricPattern.FindStringSubmatch(specs[name])
		if match == nil {
			return nil, fmt.Errorf("metric %q: expected count|sum|avg|min|max|first|last(column), got %q", name, specs[name])
		}
		m := metric{name: name, fn: match[1], column: -1}
		col := strings.Trim(match[2], `"`)
		switch {
		case col == "" || col == "*":
			if m.fn != "count" {
				return nil, fmt.Errorf("metric %q: %s needs a column", name, m.fn)
			}
		default:
			if m.column = src.ColumnIndex(col); m.column < 0 {
				return nil, fmt.Errorf("metric %q: unknown column %q", name, col)
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (a *accumulator) add(m metric, row []cty.Value) error {
	if m.column < 0 {
		a.count++
		return nil
	}
	v := row[m.column]
	if !a.seen {
		a.first = v
		a.seen = true
	}
	a.last = v
	if v.IsNull() {
		return nil
	}
	a.count++

	switch m.fn {
	case "sum", "avg":
		if v.Type() != cty.Number {
			return fmt.Errorf("%s needs numbers, got %s", m.fn, v.Type().FriendlyName())
		}
		if a.count == 1 {
			a.sum = v
		} else {
			a.sum = a.sum.Add(v)
		}
	case "min":
		if a.count == 1 || table.Compare(v, a.best) < 0 {
			a.best = v
		}
	case "max":
		if a.count == 1 || table.Compare(v, a.best) > 0 {
			a.best = v
		}
	}
	return nil
}

func (a *accumulator) result(m metric) (cty.Value, error) {
	switch m.fn {
	case "count":
		return cty.NumberIntVal(a.count), nil
	case "sum":
		if a.count == 0 {
			return cty.NullVal(cty.Number), nil
		}
		return a.sum, nil
	case "avg":
		if a.count == 0 {
			return cty.NullVal(cty.Number), nil
		}
		return a.sum.Divide(cty.NumberIntVal(a.count)), nil
	case "min", "max":
		if a.count == 0 {
			return cty.NullVal(cty.String), nil
		}
		return a.best, nil
	case "first", "last":
		if !a.seen {
			return cty.NullVal(cty.String), nil
		}
		if m.fn == "first" {
			return a.first, nil
		}
		return a.last, nil
	}
	return cty.NilVal, fmt.Errorf("unknown aggregate %q", m.fn)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("aggregate", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunAggregate,
		Description: "Group rows and compute count, sum, avg, min, max, first and last.",
	})
}
