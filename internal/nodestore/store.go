// Package nodestore defines the interface for storing and retrieving the
// dynamic, mutable execution state of nodes during a pipeline run.
//
// # Why Node Store Exists
//
// The node store isolates **mutable execution state** (status, output tables,
// errors, timings) from the **immutable DAG structure** managed by
// topologystore. Executor workers write to it continuously while the
// scheduler and the report builder read from it.
//
// # State Transitions
//
// The store itself does not police transitions; it records whatever it is
// told. The graph facade enforces the lifecycle:
//
//	Pending → Running → Completed (with output) OR Failed (with error)
//	Pending → Skipped (with reason)
package nodestore

import (
	"context"
	"time"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// Timing records when a node started and finished. Zero values mean the event
// has not happened.
type Timing struct {
	Started  time.Time
	Finished time.Time
}

// Duration returns the elapsed time between start and finish, or zero when the
// node has not finished.
func (t Timing) Duration() time.Duration {
	if t.Started.IsZero() || t.Finished.IsZero() {
		return 0
	}
	return t.Finished.Sub(t.Started)
}

// Store is the interface for managing the mutable execution state of nodes.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes, as several
// workers update different nodes at the same time.
type Store interface {
	// SetStatus updates the execution status of a node.
	SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error

	// GetStatus returns StatusPending if no status has been set yet.
	GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error)

	// SetOutput records the output of a completed node.
	SetOutput(ctx context.Context, id nodeid.Address, output any) error

	// GetOutput returns nil if the node has not produced output.
	GetOutput(ctx context.Context, id nodeid.Address) (any, error)

	// SetError records why a node failed or was skipped.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns nil if no error was recorded.
	GetError(ctx context.Context, id nodeid.Address) (error, error)

	// SetTiming records start and finish times.
	SetTiming(ctx context.Context, id nodeid.Address, timing Timing) error

	// GetTiming returns a zero Timing if none was recorded.
	GetTiming(ctx context.Context, id nodeid.Address) (Timing, error)
}
