package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/pipegrid/internal/diagram"
	"github.com/specialistvlad/pipegrid/internal/graph"
)

// PlanStage is one stage of a plan.
type PlanStage struct {
	ID     string
	Label  string
	Runner string
	// Bound is false for stages that run as passthrough because the bindings
	// do not mention them.
	Bound  bool
	Inputs []string
}

// Plan is the execution order of a pipeline. Stages in one layer have no
// dependencies on each other and may run concurrently.
type Plan struct {
	Pipeline string
	Diagram  string
	Workers  int
	FailFast bool
	Layers   [][]PlanStage
}

// Plan validates the pipeline and groups its stages into layers.
func (a *App) Plan(ctx context.Context) (*Plan, error) {
	ctx = a.withLogger(ctx)
	p, g, err := a.checkedGraph(ctx)
	if err != nil {
		return nil, err
	}
	layers, err := graph.Layers(ctx, g)
	if err != nil {
		return nil, err
	}

	opts := a.options(p, "")
	out := &Plan{
		Pipeline: p.name(),
		Diagram:  p.diagramPath,
		Workers:  opts.Workers,
		FailFast: opts.FailFast,
	}
	for _, layer := range layers {
		stages := make([]PlanStage, 0, len(layer))
		for _, n := range layer {
			ps := PlanStage{ID: n.Name(), Label: n.Label, Runner: n.Runner(), Bound: n.Binding != nil}
			if n.Binding != nil && len(n.Binding.Inputs) > 0 {
				ps.Inputs = n.Binding.Inputs
			} else {
				deps, err := g.DependenciesOf(ctx, n.ID)
				if err != nil {
					return nil, err
				}
				for _, d := range deps {
					ps.Inputs = append(ps.Inputs, d.Name())
				}
			}
			stages = append(stages, ps)
		}
		out.Layers = append(out.Layers, stages)
	}
	return out, nil
}

// Render writes the diagram as canonical DOT, filling nodes by status when
// statuses is not empty.
func (a *App) Render(ctx context.Context, w io.Writer, statuses map[string]string) error {
	ctx = a.withLogger(ctx)
	p, err := a.load(ctx)
	if err != nil {
		return err
	}
	return renderTo(w, p.diagram, statuses)
}

func renderTo(w io.Writer, d *diagram.Diagram, statuses map[string]string) error {
	out, err := d.Render(diagram.RenderOptions{Statuses: statuses})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func renderFile(path string, d *diagram.Diagram, statuses map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderTo(f, d, statuses); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
