// Package csvfile provides runners that read and write CSV files.
package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// ReadInput defines the arguments of csv_read.
type ReadInput struct {
	Path      string `hcl:"path" validate:"required"`
	Delimiter string `hcl:"delimiter,optional" validate:"omitempty,len=1"`
	HasHeader *bool  `hcl:"has_header,optional"`
	// Columns names the columns of a header-less file, or selects and orders
	// columns of a file with a header.
	Columns []string `hcl:"columns,optional" validate:"unique"`
	// StringColumns are kept as text even when every value looks numeric.
	StringColumns []string `hcl:"string_columns,optional"`
}

// WriteInput defines the arguments of csv_write.
type WriteInput struct {
	Path      string   `hcl:"path" validate:"required"`
	Delimiter string   `hcl:"delimiter,optional" validate:"omitempty,len=1"`
	Columns   []string `hcl:"columns,optional" validate:"unique"`
	// Append adds rows to an existing file and writes the header only when
	// the file is new or empty.
	Append bool `hcl:"append,optional"`
}

func delimiter(s string) rune {
	if s == "" {
		return ','
	}
	return []rune(s)[0]
}

// OnRunCSVRead loads a CSV file into a table.
func OnRunCSVRead(ctx context.Context, in *runner.Inputs, input *ReadInput) (*table.Table, error) {
	path := in.Path(input.Path)
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("Reading CSV file.")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	noHeader := input.HasHeader != nil && !*input.HasHeader
	t, err := table.ReadCSV(f, table.CSVOptions{
		Delimiter:     delimiter(input.Delimiter),
		NoHeader:      noHeader,
		StringColumns: stringColumns(input, noHeader),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(input.Columns) > 0 {
		if noHeader {
			if len(input.Columns) != len(t.Columns) && t.Len() > 0 {
				return nil, fmt.Errorf("%s: %d column names given for %d columns", path, len(input.Columns), len(t.Columns))
			}
			t.Columns = append([]string(nil), input.Columns...)
		} else if t, err = t.Project(input.Columns...); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	logger.Info("CSV file read.", "rows", t.Len(), "columns", len(t.Columns))
	return t, nil
}

// stringColumns maps string_columns to the generated colN names when the
// file has no header and columns renames them.
func stringColumns(input *ReadInput, noHeader bool) []string {
	if !noHeader || len(input.Columns) == 0 {
		return input.StringColumns
	}
	var out []string
	for _, name := range input.StringColumns {
		for i, c := range input.Columns {
			if c == name {
				out = append(out, fmt.Sprintf("col%d", i+1))
			}
		}
	}
	return out
}

// OnRunCSVWrite writes its single input table to a CSV file and returns the
// table unchanged.
func OnRunCSVWrite(ctx context.Context, in *runner.Inputs, input *WriteInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	out := src
	if len(input.Columns) > 0 {
		if out, err = src.Project(input.Columns...); err != nil {
			return nil, err
		}
	}

	path := in.Path(input.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if input.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	skipHeader := false
	if input.Append {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		skipHeader = info.Size() > 0
	}

	if err := table.WriteCSV(f, out, table.CSVOptions{Delimiter: delimiter(input.Delimiter), NoHeader: skipHeader}); err != nil {
		return nil, fmt.Errorf("failed to write csv file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close csv file %s: %w", path, err)
	}

	ctxlog.FromContext(ctx).Info("CSV file written.", "path", path, "rows", out.Len(), "append", input.Append)
	return src, nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("csv_read", &registry.RegisteredRunner{
		NewInput:    func() any { return new(ReadInput) },
		Fn:          OnRunCSVRead,
		Description: "Read a CSV file into a table, inferring column types.",
	})
	r.RegisterRunner("csv_write", &registry.RegisteredRunner{
		NewInput:    func() any { return new(WriteInput) },
		Fn:          OnRunCSVWrite,
		Description: "Write the upstream table to a CSV file.",
	})
}
