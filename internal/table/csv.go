package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// CSVOptions controls ReadCSV and WriteCSV.
type CSVOptions struct {
	// Delimiter defaults to a comma.
	Delimiter rune
	// NoHeader makes ReadCSV name columns col1, col2, ... and WriteCSV skip
	// the header line.
	NoHeader bool
	// StringColumns are never inferred as numbers or bools.
	StringColumns []string
}

func (o CSVOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

type columnKind int

const (
	kindNumber columnKind = iota
	kindBool
	kindString
)

// ReadCSV reads a whole CSV document into a table, inferring one type per
// column.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1

	var header []string
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if header == nil && !opts.NoHeader {
			header = rec
			continue
		}
		if header == nil {
			header = make([]string, len(rec))
			for i := range rec {
				header[i] = fmt.Sprintf("col%d", i+1)
			}
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv line %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		records = append(records, rec)
	}

	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate csv column %q", h)
		}
		seen[h] = true
	}

	kinds := make([]columnKind, len(header))
	for j, name := range header {
		kinds[j] = inferKind(records, j)
		if slices.Contains(opts.StringColumns, name) {
			kinds[j] = kindString
		}
	}

	t := New(header...)
	t.Rows = make([][]cty.Value, len(records))
	for i, rec := range records {
		row := make([]cty.Value, len(rec))
		for j, cell := range rec {
			row[j] = convertCell(cell, kinds[j])
		}
		t.Rows[i] = row
	}
	return t, nil
}

func inferKind(records [][]string, col int) columnKind {
	number, boolean, nonEmpty := true, true, false
	for _, rec := range records {
		cell := rec[col]
		if cell == "" {
			continue
		}
		nonEmpty = true
		if number && !isNumber(cell) {
			number = false
		}
		if boolean && cell != "true" && cell != "false" {
			boolean = false
		}
	}
	switch {
	case !nonEmpty:
		return kindString
	case number:
		return kindNumber
	case boolean:
		return kindBool
	}
	return kindString
}

func convertCell(cell string, kind columnKind) cty.Value {
	switch kind {
	case kindNumber:
		if cell == "" {
			return cty.NullVal(cty.Number)
		}
		return cty.MustParseNumberVal(cell)
	case kindBool:
		if cell == "" {
			return cty.NullVal(cty.Bool)
		}
		return cty.BoolVal(cell == "true")
	}
	if cell == "" {
		return cty.NullVal(cty.String)
	}
	return cty.StringVal(cell)
}

// WriteCSV writes the table, header first unless opts.NoHeader.
func WriteCSV(w io.Writer, t *Table, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.delimiter()
	if !opts.NoHeader {
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j, v := range row {
			rec[j] = Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
