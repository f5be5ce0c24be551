// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/diagram"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/registry"
)

// Plan is everything a session needs to wire one run.
type Plan struct {
	Diagram   *diagram.Diagram
	Model     *config.Model
	Converter config.Converter
	Registry  *registry.Registry
	Options   executor.Options
}

// SessionFactory creates an execution Session. Different implementations can
// support various backends, such as local or distributed execution.
type SessionFactory interface {
	NewSession(ctx context.Context, plan *Plan) (Session, error)
}

// Session represents a single execution run and manages its lifecycle.
type Session interface {
	Executor() executor.Executor
	// Graph gives access to the topology and, after Execute, the state of
	// every stage.
	Graph() graph.Graph
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}

// ValidationError lists every problem found while wiring a session.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}
