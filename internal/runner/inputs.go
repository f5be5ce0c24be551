// Package runner defines what a stage runner receives besides its decoded
// arguments.
package runner

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
)

// Inputs carries the upstream tables and the environment of one stage run.
type Inputs struct {
	// Stage is the diagram node identifier being executed.
	Stage string
	// Tables are the outputs of upstream stages. Names[i] is the node
	// identifier that produced Tables[i].
	Tables []*table.Table
	Names  []string
	// BaseDir is the directory relative paths are resolved against.
	BaseDir string
	// Vars are the top-level variables for row expressions (var, env,
	// pipeline).
	Vars map[string]cty.Value
	// Logger is scoped to the stage.
	Logger *slog.Logger
	// Out receives user-facing output such as table previews.
	Out io.Writer
}

// One returns the only input table. It fails unless there is exactly one.
func (in *Inputs) One() (*table.Table, error) {
	if len(in.Tables) != 1 {
		return nil, fmt.Errorf("stage '%s' expects exactly one input, got %d", in.Stage, len(in.Tables))
	}
	return in.Tables[0], nil
}

// Pair returns the two input tables of a two-sided stage in upstream order.
func (in *Inputs) Pair() (left, right *table.Table, err error) {
	if len(in.Tables) != 2 {
		return nil, nil, fmt.Errorf("stage '%s' expects exactly two inputs (left, right), got %d", in.Stage, len(in.Tables))
	}
	return in.Tables[0], in.Tables[1], nil
}

// ByName returns the table produced by the given upstream stage.
func (in *Inputs) ByName(stage string) (*table.Table, bool) {
	idx := slices.Index(in.Names, stage)
	if idx < 0 {
		return nil, false
	}
	return in.Tables[idx], true
}

// Path resolves p against BaseDir unless it is absolute.
func (in *Inputs) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || in.BaseDir == "" {
		return p
	}
	return filepath.Join(in.BaseDir, p)
}

// Log returns the stage logger, or the default logger when unset.
func (in *Inputs) Log() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}

// Writer returns Out, or io.Discard when unset.
func (in *Inputs) Writer() io.Writer {
	if in.Out == nil {
		return io.Discard
	}
	return in.Out
}
