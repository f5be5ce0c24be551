package graph

import (
	"context"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/nodestore"
)

// Graph is a unified interface for interacting with the execution DAG,
// combining static topology queries with dynamic state updates.
//
// Implementations MUST be thread-safe.
type Graph interface {
	// Node retrieves a node by its address.
	Node(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns all nodes in diagram declaration order.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the full nodes 'id' directly depends on, in edge
	// declaration order.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// DependentsOf returns the full nodes that directly depend on 'id'.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// NodeStatus returns the current status; false if the node is unknown.
	NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool)

	// Output returns the recorded output of a completed node.
	Output(ctx context.Context, id nodeid.Address) (any, error)

	// Error returns the recorded failure or skip reason of a node.
	Error(ctx context.Context, id nodeid.Address) (error, error)

	// Timing returns when a node started and finished.
	Timing(ctx context.Context, id nodeid.Address) (nodestore.Timing, error)

	// MarkRunning transitions Pending → Running and records the start time.
	MarkRunning(ctx context.Context, id nodeid.Address) error

	// MarkCompleted transitions Running → Completed and records the output.
	MarkCompleted(ctx context.Context, id nodeid.Address, output any) error

	// MarkFailed transitions Running → Failed and records the error.
	MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error

	// MarkSkipped transitions Pending → Skipped and records the reason.
	MarkSkipped(ctx context.Context, id nodeid.Address, reason error) error
}
