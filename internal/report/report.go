// Package report records the outcome of a pipeline run and writes it as YAML
// or JSON.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/table"
	"gopkg.in/yaml.v3"
)

// Run outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Report is the outcome of one run.
type Report struct {
	RunID      uuid.UUID `json:"run_id" yaml:"run_id"`
	Pipeline   string    `json:"pipeline" yaml:"pipeline"`
	Diagram    string    `json:"diagram,omitempty" yaml:"diagram,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Status     string    `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Stages     []Stage   `json:"stages" yaml:"stages"`
}

// Stage is the outcome of one diagram node.
type Stage struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Runner   string   `json:"runner" yaml:"runner"`
	Status   string   `json:"status" yaml:"status"`
	Rows     int      `json:"rows" yaml:"rows"`
	Columns  []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Duration string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Build collects the state of every node of g after a run. runErr is the
// error Execute returned.
func Build(ctx context.Context, runID uuid.UUID, pipeline string, g graph.Graph, started, finished time.Time, runErr error) *Report {
	r := &Report{
		RunID:      runID,
		Pipeline:   pipeline,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Status:     StatusSucceeded,
	}
	var runFailure *executor.RunError
	switch {
	case runErr == nil:
	case !errors.As(runErr, &runFailure) && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)):
		r.Status = StatusCancelled
		r.Error = runErr.Error()
	default:
		r.Status = StatusFailed
		r.Error = runErr.Error()
	}

	for _, n := range g.AllNodes(ctx) {
		st := Stage{ID: n.Name(), Label: n.Label, Runner: n.Runner()}
		status, _ := g.NodeStatus(ctx, n.ID)
		st.Status = status.String()

		if status == node.StatusCompleted {
			if out, _ := g.Output(ctx, n.ID); out != nil {
				if t, ok := out.(*table.Table); ok {
					st.Rows = t.Len()
					st.Columns = t.Columns
				}
			}
		}
		if timing, err := g.Timing(ctx, n.ID); err == nil && timing.Duration() > 0 {
			st.Duration = timing.Duration().Round(time.Microsecond).String()
		}
		if nodeErr, _ := g.Error(ctx, n.ID); nodeErr != nil {
			st.Error = nodeErr.Error()
		}
		r.Stages = append(r.Stages, st)
	}
	return r
}

// Statuses maps stage identifiers to their status, for diagram rendering.
func (r *Report) Statuses() map[string]string {
	out := make(map[string]string, len(r.Stages))
	for _, s := range r.Stages {
		out[s.ID] = s.Status
	}
	return out
}

// Counts returns how many stages ended in each status.
func (r *Report) Counts() map[string]int {
	out := make(map[string]int)
	for _, s := range r.Stages {
		out[s.Status]++
	}
	return out
}

// Encode writes the report as "yaml" or "json".
func (r *Report) Encode(w io.Writer, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// FormatFor picks YAML for .yaml and .yml files and JSON otherwise.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Write stores the report at path, creating parent directories.
func (r *Report) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.Encode(f, FormatFor(path)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	if FormatFor(path) == "yaml" {
		err = yaml.Unmarshal(data, r)
	} else {
		err = json.Unmarshal(data, r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return r, nil
}
