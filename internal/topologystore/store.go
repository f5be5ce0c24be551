// Package topologystore defines the interface for storing and retrieving the
// static structure of a pipeline graph (DAG).
//
// # Why Topology Store Exists
//
// The topology store isolates the **immutable DAG structure** (stages and the
// edges of the diagram) from the **mutable execution state** (status, output
// tables, errors) managed by nodestore.
//
// This separation keeps structure queries made by the scheduler free from
// contention with the frequent state writes made by executor workers, and
// lets the structure be validated (cycles, unknown bindings) before anything
// runs.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per session (ephemeral, not persistent across runs)
//  2. **Populated** from a diagram (nodes, then edges)
//  3. **Read-only** during execution
//  4. **Discarded** when the session ends
package topologystore

import (
	"context"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// Store is the interface for managing the static topology of a pipeline DAG.
//
// This interface does NOT manage execution state. That responsibility belongs
// to nodestore.Store.
//
// # Ordering
//
// Every query returns nodes in a deterministic order: AllNodes in insertion
// order, DependenciesOf and DependentsOf in edge insertion order. The diagram
// declaration order therefore decides input order for runners and tie-breaks
// for planning.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// AddNode registers a node. Adding the same node twice (by ID) is a no-op.
	AddNode(ctx context.Context, n *node.Node) error

	// AddDependency records that 'to' depends on 'from' (from runs first).
	// Both nodes must exist. Adding the same edge twice is a no-op.
	AddDependency(ctx context.Context, from, to nodeid.Address) error

	// GetNode retrieves a single node by its address.
	GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns a snapshot of all nodes in insertion order.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the addresses 'id' directly depends on.
	// It returns an error if 'id' is unknown.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)

	// DependentsOf returns the addresses that directly depend on 'id'.
	// It returns an error if 'id' is unknown.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)
}
