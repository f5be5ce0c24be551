package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/report"
)

// Run executes the pipeline once and returns its report. The report is
// returned even when stages failed; the error then describes the failures.
func (a *App) Run(ctx context.Context) (*report.Report, error) {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthCheckServer(ctx); err != nil {
		return nil, err
	}
	_, rep, err := a.runOnce(ctx)
	return rep, err
}

func (a *App) runOnce(ctx context.Context) (*project, *report.Report, error) {
	logger := ctxlog.FromContext(ctx)

	p, err := a.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.New()
	sess, err := a.sessions.NewSession(ctx, a.plan(p, runID.String()))
	if err != nil {
		return p, nil, err
	}
	defer sess.Close(ctx)

	opts := a.options(p, runID.String())
	logger.Info("🚀 Starting pipeline run", "pipeline", p.name(), "run_id", runID.String(),
		"stages", len(p.diagram.Nodes), "workers", opts.Workers, "fail_fast", opts.FailFast)

	started := time.Now()
	runErr := sess.Executor().Execute(ctx)
	finished := time.Now()

	rep := report.Build(ctx, runID, p.name(), sess.Graph(), started, finished, runErr)
	rep.Diagram = p.diagramPath
	a.metrics.RunFinished(runErr == nil)

	counts := rep.Counts()
	logger.Info("🏁 Pipeline run finished", "status", rep.Status, "duration", finished.Sub(started).Round(time.Millisecond),
		"completed", counts["completed"], "failed", counts["failed"], "skipped", counts["skipped"])

	var outErrs []error
	if a.config.ReportPath != "" {
		if err := rep.Write(a.config.ReportPath); err != nil {
			outErrs = append(outErrs, err)
		} else {
			logger.Info("Report written.", "path", a.config.ReportPath)
		}
	}
	if a.config.RenderPath != "" {
		if err := renderFile(a.config.RenderPath, p.diagram, rep.Statuses()); err != nil {
			outErrs = append(outErrs, fmt.Errorf("failed to render diagram: %w", err))
		} else {
			logger.Info("Status diagram written.", "path", a.config.RenderPath)
		}
	}

	if runErr != nil {
		outErrs = append([]error{fmt.Errorf("execution failed: %w", runErr)}, outErrs...)
	}
	return p, rep, errors.Join(outErrs...)
}
