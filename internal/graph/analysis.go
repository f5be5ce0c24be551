package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// CycleError reports a dependency cycle. Path starts and ends with the same node.
type CycleError struct {
	Path []nodeid.Address
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Path))
	for i, id := range e.Path {
		names[i] = id.Name
	}
	return "dependency cycle detected: " + strings.Join(names, " -> ")
}

// Validate checks that the graph is acyclic.
func Validate(ctx context.Context, g Graph) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[nodeid.Address]int)
	var stack []nodeid.Address

	var visit func(id nodeid.Address) error
	visit = func(id nodeid.Address) error {
		color[id] = grey
		stack = append(stack, id)

		dependents, err := g.DependentsOf(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range dependents {
			switch color[d.ID] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == d.ID {
						start = i
						break
					}
				}
				path := append([]nodeid.Address{}, stack[start:]...)
				return &CycleError{Path: append(path, d.ID)}
			case white:
				if err := visit(d.ID); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, n := range g.AllNodes(ctx) {
		if color[n.ID] == white {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalOrder returns every node after all of its dependencies. Among
// nodes that are ready at the same time, diagram declaration order wins.
func TopologicalOrder(ctx context.Context, g Graph) ([]*node.Node, error) {
	layers, err := Layers(ctx, g)
	if err != nil {
		return nil, err
	}
	var order []*node.Node
	for _, layer := range layers {
		order = append(order, layer...)
	}
	return order, nil
}

// Layers groups nodes by the length of the longest dependency chain leading to
// them. Nodes in the same layer never depend on each other and can run in
// parallel; layer zero holds the roots.
func Layers(ctx context.Context, g Graph) ([][]*node.Node, error) {
	if err := Validate(ctx, g); err != nil {
		return nil, err
	}

	all := g.AllNodes(ctx)
	depth := make(map[nodeid.Address]int, len(all))
	var depthOf func(n *node.Node) (int, error)
	depthOf = func(n *node.Node) (int, error) {
		if d, ok := depth[n.ID]; ok {
			return d, nil
		}
		deps, err := g.DependenciesOf(ctx, n.ID)
		if err != nil {
			return 0, err
		}
		d := 0
		for _, dep := range deps {
			dd, err := depthOf(dep)
			if err != nil {
				return 0, err
			}
			d = max(d, dd+1)
		}
		depth[n.ID] = d
		return d, nil
	}

	var layers [][]*node.Node
	for _, n := range all {
		d, err := depthOf(n)
		if err != nil {
			return nil, err
		}
		for len(layers) <= d {
			layers = append(layers, nil)
		}
		layers[d] = append(layers[d], n)
	}
	return layers, nil
}

// Roots returns the nodes without dependencies.
func Roots(ctx context.Context, g Graph) ([]*node.Node, error) {
	return filterByAdjacency(ctx, g, g.DependenciesOf)
}

// Sinks returns the nodes nothing depends on.
func Sinks(ctx context.Context, g Graph) ([]*node.Node, error) {
	return filterByAdjacency(ctx, g, g.DependentsOf)
}

func filterByAdjacency(ctx context.Context, g Graph, adjacent func(context.Context, nodeid.Address) ([]*node.Node, error)) ([]*node.Node, error) {
	var out []*node.Node
	for _, n := range g.AllNodes(ctx) {
		adj, err := adjacent(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		if len(adj) == 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

// Descendants returns every node reachable from id through dependents, in
// breadth-first order, excluding id itself.
func Descendants(ctx context.Context, g Graph, id nodeid.Address) ([]*node.Node, error) {
	if _, ok := g.Node(ctx, id); !ok {
		return nil, fmt.Errorf("node '%s' not found in graph", id)
	}
	seen := map[nodeid.Address]bool{id: true}
	queue := []nodeid.Address{id}
	var out []*node.Node
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		dependents, err := g.DependentsOf(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, d := range dependents {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
			queue = append(queue, d.ID)
		}
	}
	return out, nil
}
