package inmemorytopology

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu         sync.RWMutex
	order      []nodeid.Address
	nodes      map[nodeid.Address]*node.Node
	deps       map[nodeid.Address][]nodeid.Address // Key: node, Value: nodes it depends on
	dependents map[nodeid.Address][]nodeid.Address // Key: node, Value: nodes depending on it
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes:      make(map[nodeid.Address]*node.Node),
		deps:       make(map[nodeid.Address][]nodeid.Address),
		dependents: make(map[nodeid.Address][]nodeid.Address),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	if n == nil {
		return fmt.Errorf("cannot add a nil node")
	}
	if n.ID.IsZero() {
		return fmt.Errorf("cannot add a node without an identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return nil
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	return nil
}

// AddDependency creates a dependency link from one node to another.
func (s *Store) AddDependency(ctx context.Context, from, to nodeid.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[from]; !exists {
		return fmt.Errorf("dependency source node '%s' not found in topology", from)
	}
	if _, exists := s.nodes[to]; !exists {
		return fmt.Errorf("dependency target node '%s' not found in topology", to)
	}
	if slices.Contains(s.deps[to], from) {
		return nil
	}

	s.deps[to] = append(s.deps[to], from)
	s.dependents[from] = append(s.dependents[from], to)
	return nil
}

// GetNode retrieves a single node by its address.
func (s *Store) GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok
}

// AllNodes returns a slice of all nodes in insertion order.
func (s *Store) AllNodes(ctx context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(s.order))
	for _, id := range s.order {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// DependenciesOf returns the addresses of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.adjacent(id, s.deps)
}

// DependentsOf returns the addresses of all nodes that depend on the given node.
func (s *Store) DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.adjacent(id, s.dependents)
}

func (s *Store) adjacent(id nodeid.Address, edges map[nodeid.Address][]nodeid.Address) ([]nodeid.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.nodes[id]; !exists {
		return nil, fmt.Errorf("node '%s' not found in topology", id)
	}
	return slices.Clone(edges[id]), nil
}
