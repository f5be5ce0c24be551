// Package sqlite provides the sqlite_write runner, which stores a table in a
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"

	_ "modernc.org/sqlite"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of sqlite_write.
type Input struct {
	Path  string `hcl:"path" validate:"required"`
	Table string `hcl:"table" validate:"required"`
	// Mode is replace (default) or append.
	Mode string `hcl:"mode,optional" validate:"omitempty,oneof=replace append"`
}

// OnRunSQLiteWrite writes its single input into a table of a SQLite
// database, creating the file and table as needed, and returns the input.
func OnRunSQLiteWrite(ctx context.Context, in *runner.Inputs, input *Input) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	path := in.Path(input.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	name := quoteIdent(input.Table)
	if input.Mode != "append" {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return nil, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, createStatement(name, src)); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if len(src.Columns) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(src.Columns)), ", ")
		cols := make([]string, len(src.Columns))
		for i, c := range src.Columns {
			cols[i] = quoteIdent(c)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), placeholders))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(src.Columns))
		for i, row := range src.Rows {
			for j, v := range row {
				args[j] = sqlValue(v)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return nil, fmt.Errorf("failed to insert row %d: %w", i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Table written to SQLite.", "path", path, "table", input.Table, "rows", src.Len())
	return src, nil
}

func createStatement(name string, t *table.Table) string {
	defs := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		defs[j] = quoteIdent(c) + " " + columnAffinity(t, j)
	}
	if len(defs) == 0 {
		defs = []string{`"_empty" TEXT`}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
}

func columnAffinity(t *table.Table, col int) string {
	for _, row := range t.Rows {
		switch v := row[col]; {
		case v.IsNull():
			continue
		case v.Type() == cty.Number:
			return "NUMERIC"
		case v.Type() == cty.Bool:
			return "INTEGER"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func sqlValue(v cty.Value) any {
	switch {
	case v.IsNull():
		return nil
	case v.Type() == cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			if n, acc := f.Int64(); acc == 0 {
				return n
			}
		}
		x, _ := f.Float64()
		return x
	case v.Type() == cty.Bool:
		return v.True()
	}
	return table.Format(v)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("sqlite_write", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunSQLiteWrite,
		Description: "Write the upstream table into a SQLite database.",
	})
}
