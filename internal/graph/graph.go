package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/nodestore"
	"github.com/specialistvlad/pipegrid/internal/topologystore"
)

// ErrInvalidTransition is returned when a status change violates the node lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// Manager provides a high-level, thread-safe interface to the execution graph
// by composing a topology store and a node state store.
type Manager struct {
	topology  topologystore.Store
	nodeState nodestore.Store

	// mu serialises status transitions so check-then-set is atomic.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) *Manager {
	return &Manager{topology: ts, nodeState: ns, now: time.Now}
}

// Topology exposes the underlying topology store to the session builder.
func (m *Manager) Topology() topologystore.Store {
	return m.topology
}

func (m *Manager) Node(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	return m.topology.GetNode(ctx, id)
}

func (m *Manager) AllNodes(ctx context.Context) []*node.Node {
	return m.topology.AllNodes(ctx)
}

func (m *Manager) DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependenciesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependentsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) resolve(ctx context.Context, ids []nodeid.Address) ([]*node.Node, error) {
	nodes := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := m.topology.GetNode(ctx, id)
		if !ok {
			return nil, fmt.Errorf("internal inconsistency: edge references unknown node '%s'", id)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (m *Manager) NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool) {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return node.StatusPending, false
	}
	status, err := m.nodeState.GetStatus(ctx, id)
	if err != nil {
		return node.StatusPending, false
	}
	return status, true
}

func (m *Manager) Output(ctx context.Context, id nodeid.Address) (any, error) {
	return m.nodeState.GetOutput(ctx, id)
}

func (m *Manager) Error(ctx context.Context, id nodeid.Address) (error, error) {
	return m.nodeState.GetError(ctx, id)
}

func (m *Manager) Timing(ctx context.Context, id nodeid.Address) (nodestore.Timing, error) {
	return m.nodeState.GetTiming(ctx, id)
}

func (m *Manager) MarkRunning(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusRunning, func(t *nodestore.Timing) error {
		t.Started = m.now()
		return nil
	})
}

func (m *Manager) MarkCompleted(ctx context.Context, id nodeid.Address, output any) error {
	return m.transition(ctx, id, node.StatusCompleted, func(t *nodestore.Timing) error {
		t.Finished = m.now()
		return m.nodeState.SetOutput(ctx, id, output)
	})
}

func (m *Manager) MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error {
	return m.transition(ctx, id, node.StatusFailed, func(t *nodestore.Timing) error {
		t.Finished = m.now()
		return m.nodeState.SetError(ctx, id, nodeErr)
	})
}

func (m *Manager) MarkSkipped(ctx context.Context, id nodeid.Address, reason error) error {
	return m.transition(ctx, id, node.StatusSkipped, func(*nodestore.Timing) error {
		return m.nodeState.SetError(ctx, id, reason)
	})
}

// transition checks the lifecycle, applies the side effect, then commits the
// new status. The timing passed to apply is persisted afterwards.
func (m *Manager) transition(ctx context.Context, id nodeid.Address, next node.Status, apply func(*nodestore.Timing) error) error {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return fmt.Errorf("node '%s' not found in graph", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.nodeState.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: node '%s' cannot go from %s to %s", ErrInvalidTransition, id, current, next)
	}

	timing, err := m.nodeState.GetTiming(ctx, id)
	if err != nil {
		return err
	}
	if err := apply(&timing); err != nil {
		return err
	}
	if err := m.nodeState.SetTiming(ctx, id, timing); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("Node status changed.", "node", id.String(), "from", current.String(), "to", next.String())
	return m.nodeState.SetStatus(ctx, id, next)
}
