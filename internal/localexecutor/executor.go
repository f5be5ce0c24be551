// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/scheduler"
	"github.com/specialistvlad/pipegrid/internal/table"
	"golang.org/x/sync/errgroup"
)

// Executor implements the executor.Executor interface for local execution.
// A fixed pool of workers consumes the scheduler's ready channel.
type Executor struct {
	sched     scheduler.Scheduler
	graph     graph.Graph
	registry  *registry.Registry
	converter config.Converter
	model     *config.Model
	opts      executor.Options
}

// New creates a new local executor.
func New(
	sch scheduler.Scheduler,
	g graph.Graph,
	reg *registry.Registry,
	conv config.Converter,
	model *config.Model,
	opts executor.Options,
) *Executor {
	if opts.Workers < 1 {
		opts.Workers = config.DefaultWorkers
	}
	return &Executor{
		sched:     sch,
		graph:     g,
		registry:  reg,
		converter: conv,
		model:     model,
		opts:      opts,
	}
}

// Execute runs the graph to completion. It returns a *executor.RunError when
// any stage failed, and the context error when the run was cancelled from
// outside before every stage settled.
func (e *Executor) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ready, err := e.sched.Start(runCtx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	w := &worker{
		Executor: e,
		cancel:   cancel,
		evalCtx:  e.converter.EvalContext(e.model, e.opts.RunID),
	}

	logger.Debug("Starting workers.", "workers", e.opts.Workers, "failFast", e.opts.FailFast)
	var grp errgroup.Group
	for i := range e.opts.Workers {
		grp.Go(func() error {
			return w.loop(runCtx, ready, i)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	e.countSkipped(ctx)
	if failures := e.failures(ctx); len(failures) > 0 {
		return &executor.RunError{Failures: failures}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (e *Executor) failures(ctx context.Context) []executor.StageFailure {
	var out []executor.StageFailure
	for _, n := range e.graph.AllNodes(ctx) {
		if status, _ := e.graph.NodeStatus(ctx, n.ID); status != node.StatusFailed {
			continue
		}
		nodeErr, _ := e.graph.Error(ctx, n.ID)
		out = append(out, executor.StageFailure{Stage: n.Name(), Err: nodeErr})
	}
	return out
}

func (e *Executor) countSkipped(ctx context.Context) {
	for _, n := range e.graph.AllNodes(ctx) {
		if status, _ := e.graph.NodeStatus(ctx, n.ID); status == node.StatusSkipped {
			e.opts.Metrics.StageSkipped()
		}
	}
}

// stageError wraps a runner failure with the stage it happened in.
func stageError(n *node.Node, err error) error {
	return fmt.Errorf("runner '%s': %w", n.Runner(), err)
}

// inputs collects upstream tables: binding inputs order when given, edge order
// otherwise.
func (e *Executor) inputs(ctx context.Context, n *node.Node) ([]*table.Table, []string, error) {
	deps, err := e.graph.DependenciesOf(ctx, n.ID)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name()
	}
	if n.Binding != nil && len(n.Binding.Inputs) > 0 {
		names = n.Binding.Inputs
	}

	tables := make([]*table.Table, 0, len(names))
	for _, name := range names {
		out, err := e.graph.Output(ctx, nodeid.Stage(name))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read output of '%s': %w", name, err)
		}
		t, ok := out.(*table.Table)
		if !ok {
			return nil, nil, fmt.Errorf("stage '%s' produced no table", name)
		}
		tables = append(tables, t)
	}
	return tables, names, nil
}

// runStage executes one node. Panics inside the runner become errors.
func (w *worker) runStage(ctx context.Context, n *node.Node) (out *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Debug("Runner panic stack.", "stack", string(debug.Stack()))
			err = fmt.Errorf("runner '%s' panicked: %v", n.Runner(), r)
		}
	}()

	rr, ok := w.registry.Lookup(n.Runner())
	if !ok {
		return nil, fmt.Errorf("unknown runner '%s'", n.Runner())
	}

	args := rr.NewInput()
	if err := w.converter.DecodeArguments(ctx, n.Binding, w.evalCtx, args); err != nil {
		return nil, err
	}

	tables, names, err := w.inputs(ctx, n)
	if err != nil {
		return nil, err
	}

	in := &runner.Inputs{
		Stage:  n.Name(),
		Tables: tables,
		Names:  names,
		Vars:   w.evalCtx.Variables,
		Logger: ctxlog.FromContext(ctx),
		Out:    w.opts.Out,
	}
	if n.Binding != nil {
		in.BaseDir = n.Binding.BaseDir
	}

	stageCtx := ctx
	if n.Binding != nil && n.Binding.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, n.Binding.Timeout)
		defer cancel()
	}

	out, err = rr.Call(stageCtx, in, args)
	// A runner that ignores its context still fails once it overruns.
	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		if err == nil {
			err = stageCtx.Err()
		}
		return nil, fmt.Errorf("timed out after %s: %w", n.Binding.Timeout, err)
	}
	if err != nil {
		return nil, stageError(n, err)
	}
	if out == nil {
		out = table.New()
	}
	return out, nil
}

// worker is the processing loop shared by the pool.
type worker struct {
	*Executor
	cancel  context.CancelCauseFunc
	evalCtx *hcl.EvalContext
}

func (w *worker) loop(ctx context.Context, ready <-chan *node.Node, workerID int) error {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	logger.Debug("Worker started.")

	for n := range ready {
		if ctx.Err() != nil {
			// The scheduler skips pending nodes on cancellation. This covers
			// a node that was dequeued before that happened.
			_ = w.graph.MarkSkipped(ctx, n.ID, context.Cause(ctx))
			continue
		}
		if err := w.graph.MarkRunning(ctx, n.ID); err != nil {
			if errors.Is(err, graph.ErrInvalidTransition) {
				continue
			}
			w.cancel(err)
			return err
		}
		if err := w.execute(ctx, n); err != nil {
			w.cancel(err)
			return err
		}
	}

	logger.Debug("Worker finished.")
	return nil
}

func (w *worker) execute(ctx context.Context, n *node.Node) error {
	stageCtx, logger := ctxlog.With(ctx, "stage", n.Name(), "runner", n.Runner())
	logger.Info("▶️ Starting stage", "label", n.Label)
	w.opts.Metrics.StageStarted()
	start := time.Now()

	out, err := w.runStage(stageCtx, n)
	elapsed := time.Since(start)

	if err != nil {
		logger.Error("❌ Stage failed", "error", err, "duration", elapsed)
		w.opts.Metrics.StageFinished(n.Name(), n.Runner(), node.StatusFailed.String(), elapsed, 0)
		if markErr := w.graph.MarkFailed(ctx, n.ID, err); markErr != nil {
			return markErr
		}
		w.sched.Done(ctx, n.ID, false)
		if w.opts.FailFast {
			cause := fmt.Errorf("%w: '%s'", executor.ErrFailFast, n.Name())
			w.sched.Cancel(ctx, cause)
			w.cancel(cause)
		}
		return nil
	}

	logger.Info("✅ Finished stage", "rows", out.Len(), "duration", elapsed)
	w.opts.Metrics.StageFinished(n.Name(), n.Runner(), node.StatusCompleted.String(), elapsed, out.Len())
	if err := w.graph.MarkCompleted(ctx, n.ID, out); err != nil {
		return err
	}
	w.sched.Done(ctx, n.ID, true)
	return nil
}
