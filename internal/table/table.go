// Package table holds the in-memory tabular data passed between stages.
//
// Cells are cty values restricted to String, Number and Bool, or a typed null
// of one of them. Keeping cells as cty values lets row expressions operate on
// them without conversion.
package table

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// Table is an ordered set of named columns and rows of cells.
type Table struct {
	Columns []string
	Rows    [][]cty.Value
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns every value of the named column.
func (t *Table) Column(name string) ([]cty.Value, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]cty.Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(row ...cty.Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Row returns row i as a column-name map.
func (t *Table) Row(i int) map[string]cty.Value {
	out := make(map[string]cty.Value, len(t.Columns))
	for j, c := range t.Columns {
		out[c] = t.Rows[i][j]
	}
	return out
}

// Clone returns a copy that shares no slices with t. Cells are immutable and
// are shared.
func (t *Table) Clone() *Table {
	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([][]cty.Value, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// Project returns a table containing only the named columns, in that order.
func (t *Table) Project(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}
	out := &Table{Columns: slices.Clone(columns), Rows: make([][]cty.Value, len(t.Rows))}
	for r, row := range t.Rows {
		projected := make([]cty.Value, len(idx))
		for i, j := range idx {
			projected[i] = row[j]
		}
		out.Rows[r] = projected
	}
	return out, nil
}

// SetColumn replaces the named column, or appends it when missing. values
// must have one entry per row.
func (t *Table) SetColumn(name string, values []cty.Value) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}
