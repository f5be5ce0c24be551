// Package node defines the vertices of the execution graph and their
// lifecycle status.
package node

import (
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// Node is a single vertex in the execution graph: one stage of the pipeline
// diagram together with the binding that tells the executor what to run.
type Node struct {
	// ID is the unique, structured identifier of the node.
	ID nodeid.Address
	// Label is the human-readable label from the diagram. It falls back to the
	// node name when the diagram declares none.
	Label string
	// Shape is the diagram shape, kept for rendering.
	Shape string
	// Attrs holds the remaining diagram attributes.
	Attrs map[string]string
	// Binding is nil for nodes the binding file does not mention.
	Binding *config.Stage
}

// Name returns the diagram identifier of the node.
func (n *Node) Name() string {
	return n.ID.Name
}

// Runner returns the name of the runner that executes this node.
func (n *Node) Runner() string {
	return n.Binding.RunnerName()
}

// Status represents the execution state of a node in the graph.
type Status int

const (
	// StatusPending indicates the node is waiting for its dependencies.
	StatusPending Status = iota
	// StatusRunning indicates the node is currently being executed by a worker.
	StatusRunning
	// StatusCompleted indicates the node finished successfully.
	StatusCompleted
	// StatusFailed indicates the node's runner returned an error.
	StatusFailed
	// StatusSkipped indicates the node never ran, because a dependency failed
	// or the run was cancelled.
	StatusSkipped
)

var statusNames = [...]string{"pending", "running", "completed", "failed", "skipped"}

// String returns the lowercase name of the status.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
//
//	pending → running → completed | failed
//	pending → skipped
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusSkipped
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}
