package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/diagram"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/localsession"
	"github.com/specialistvlad/pipegrid/internal/session"
)

// project is a loaded diagram with its bindings.
type project struct {
	diagramPath string
	diagram     *diagram.Diagram
	model       *config.Model
	converter   config.Converter
}

// name returns the pipeline name: the pipeline block's label, the diagram's
// graph name, or the diagram file name.
func (p *project) name() string {
	if p.model.Pipeline.Name != "" {
		return p.model.Pipeline.Name
	}
	if p.diagram.Name != "" {
		return p.diagram.Name
	}
	return strings.TrimSuffix(filepath.Base(p.diagramPath), filepath.Ext(p.diagramPath))
}

// load reads the bindings, then the diagram they or the command line name.
func (a *App) load(ctx context.Context) (*project, error) {
	logger := ctxlog.FromContext(ctx)

	model, conv, err := a.loader.Load(ctx, a.config.BindingPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}
	logger.Debug("Bindings loaded.", "stages", len(model.Stages))

	path := a.config.DiagramPath
	if path == "" {
		path = model.Pipeline.Diagram
	}
	if path == "" {
		return nil, errors.New("no diagram given: pass a diagram path or set `diagram` in the pipeline block")
	}

	d, err := diagram.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Diagram loaded.", "path", path, "nodes", len(d.Nodes), "edges", len(d.Edges))

	return &project{diagramPath: path, diagram: d, model: model, converter: conv}, nil
}

// options merges command-line settings over the pipeline block over defaults.
func (a *App) options(p *project, runID string) executor.Options {
	opts := executor.Options{
		Workers:  config.DefaultWorkers,
		FailFast: config.BoolOr(p.model.Pipeline.FailFast, false),
		RunID:    runID,
		Metrics:  a.metrics,
		Out:      a.outW,
	}
	if p.model.Pipeline.Workers > 0 {
		opts.Workers = p.model.Pipeline.Workers
	}
	if a.config.WorkerCount > 0 {
		opts.Workers = a.config.WorkerCount
	}
	if a.config.FailFast != nil {
		opts.FailFast = *a.config.FailFast
	}
	return opts
}

func (a *App) plan(p *project, runID string) *session.Plan {
	return &session.Plan{
		Diagram:   p.diagram,
		Model:     p.model,
		Converter: p.converter,
		Registry:  a.registry,
		Options:   a.options(p, runID),
	}
}

// checkedGraph loads the project and returns its validated graph.
func (a *App) checkedGraph(ctx context.Context) (*project, *graph.Manager, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	pl := a.plan(p, "")
	g, err := localsession.BuildGraph(ctx, pl)
	if err != nil {
		return nil, nil, err
	}
	if err := localsession.Validate(ctx, g, pl); err != nil {
		return nil, nil, err
	}
	return p, g, nil
}

// Validate loads the diagram and bindings and reports every problem.
func (a *App) Validate(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	p, g, err := a.checkedGraph(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("✅ Pipeline is valid", "pipeline", p.name(), "stages", len(g.AllNodes(ctx)), "bound", len(p.model.Stages))
	return nil
}
