package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func summary() *table.Table {
	t := table.New("branch", "total", "paid")
	t.Rows = [][]cty.Value{
		{cty.StringVal("A"), cty.MustParseNumberVal("10.5"), cty.True},
		{cty.StringVal("B"), cty.NumberIntVal(30), cty.NullVal(cty.Bool)},
	}
	return t
}

func count(t *testing.T, path, tbl string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "`+tbl+`"`).Scan(&n))
	return n
}

func TestOnRunSQLiteWrite(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	in := &runner.Inputs{Stage: "S15", BaseDir: dir, Tables: []*table.Table{summary()}}

	// Act
	out, err := OnRunSQLiteWrite(context.Background(), in, &Input{Path: "out/summary.db", Table: "summary"})

	// Assert
	require.NoError(t, err)
	assert.Same(t, in.Tables[0], out)

	path := filepath.Join(dir, "out", "summary.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT branch, total, paid FROM summary ORDER BY branch`)
	require.NoError(t, err)
	defer rows.Close()

	type rec struct {
		branch string
		total  float64
		paid   sql.NullBool
	}
	var got []rec
	for rows.Next() {
		var r rec
		require.NoError(t, rows.Scan(&r.branch, &r.total, &r.paid))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []rec{
		{"A", 10.5, sql.NullBool{Bool: true, Valid: true}},
		{"B", 30, sql.NullBool{}},
	}, got)
}

func TestOnRunSQLiteWrite_Modes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.db")
	in := &runner.Inputs{Tables: []*table.Table{summary()}}

	_, err := OnRunSQLiteWrite(context.Background(), in, &Input{Path: path, Table: "s"})
	require.NoError(t, err)
	_, err = OnRunSQLiteWrite(context.Background(), in, &Input{Path: path, Table: "s", Mode: "append"})
	require.NoError(t, err)
	assert.Equal(t, 4, count(t, path, "s"))

	_, err = OnRunSQLiteWrite(context.Background(), in, &Input{Path: path, Table: "s", Mode: "replace"})
	require.NoError(t, err)
	assert.Equal(t, 2, count(t, path, "s"))
}

func TestOnRunSQLiteWrite_QuotedNames(t *testing.T) {
	dir := t.TempDir()
	src := table.New(`claim "id"`)
	src.Rows = [][]cty.Value{{cty.NumberIntVal(1)}}
	in := &runner.Inputs{BaseDir: dir, Tables: []*table.Table{src}}

	_, err := OnRunSQLiteWrite(context.Background(), in, &Input{Path: "q.db", Table: "my table"})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, filepath.Join(dir, "q.db"), "my table"))
}

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	require.NoError(t, r.Validate(context.Background()))
}
