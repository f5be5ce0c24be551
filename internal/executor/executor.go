// Package executor defines the interface for the pipeline execution engine
// and the errors it reports.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/metrics"
)

// Executor is responsible for orchestrating the end-to-end execution of a
// pipeline graph. It manages concurrency, interacts with the scheduler, and
// dispatches stages to their runners.
type Executor interface {
	Execute(ctx context.Context) error
}

// ErrFailFast is the cancellation cause of a run stopped by its first failed
// stage.
var ErrFailFast = errors.New("run cancelled after a stage failure")

// Options tune a single run.
type Options struct {
	// Workers is the number of stages that may run at the same time.
	Workers int
	// FailFast cancels the whole run on the first failed stage. Otherwise
	// only the dependents of a failed stage are skipped.
	FailFast bool
	// RunID is exposed to argument expressions as pipeline.run_id.
	RunID string
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Out receives user-facing runner output; nil discards it.
	Out io.Writer
}

// StageFailure is one failed stage of a run.
type StageFailure struct {
	Stage string
	Err   error
}

// RunError is returned by Execute when at least one stage failed.
type RunError struct {
	Failures []StageFailure
}

func (e *RunError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("stage '%s': %v", f.Stage, f.Err)
	}
	return fmt.Sprintf("%d stage(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the stage errors to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Stages returns the identifiers of the failed stages.
func (e *RunError) Stages() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Stage
	}
	return out
}
