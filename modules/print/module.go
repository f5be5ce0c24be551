// Package print provides a runner that previews its input table.
package print

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// DefaultLimit is the number of rows shown when limit is not set.
const DefaultLimit = 10

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print runner.
type Input struct {
	Limit int    `hcl:"limit,optional" validate:"min=0"`
	Title string `hcl:"title,optional"`
}

// OnRunPrint writes a preview of its input to the application output and
// returns the input unchanged.
func OnRunPrint(ctx context.Context, in *runner.Inputs, input *Input) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	title := input.Title
	if title == "" {
		title = in.Stage
	}
	in.Log().Info("Printing input", "rows", src.Len(), "limit", limit)

	w := tabwriter.NewWriter(in.Writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "== %s (%d rows)\n", title, src.Len())
	fmt.Fprintln(w, strings.Join(src.Columns, "\t"))
	cells := make([]string, len(src.Columns))
	for i, row := range src.Rows {
		if i == limit {
			fmt.Fprintf(w, "... %d more\n", src.Len()-limit)
			break
		}
		for j, v := range row {
			cells[j] = table.Format(v)
			if v.IsNull() {
				cells[j] = "(null)"
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return src, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("print", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunPrint,
		Description: "Print a preview of the upstream table.",
	})
}
