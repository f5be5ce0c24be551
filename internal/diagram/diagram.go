package diagram

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/awalterschulze/gographviz/ast"
)

// ErrUndirected is returned for `graph` diagrams; pipelines need directed edges.
var ErrUndirected = errors.New("diagram must be a digraph")

// Diagram is a parsed pipeline diagram.
type Diagram struct {
	Name string
	// Attrs holds graph-level attributes such as rankdir.
	Attrs map[string]string
	// Nodes are in declaration order. Nodes that only appear in edges follow
	// the first edge that mentions them.
	Nodes []Node
	// Edges are in source order, without duplicates.
	Edges []Edge
}

// Node is a labelled box of the diagram.
type Node struct {
	ID    string
	Label string
	Shape string
	// Attrs holds every attribute except label and shape.
	Attrs map[string]string
}

// Edge is a dependency: To runs after From.
type Edge struct {
	From  string
	To    string
	Attrs map[string]string
}

// Load reads and parses a DOT file.
func Load(path string) (*Diagram, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram: %w", err)
	}
	d, err := Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse parses DOT source.
func Parse(src string) (*Diagram, error) {
	tree, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diagram: %w", err)
	}
	g := gographviz.NewGraph()
	if err := gographviz.Analyse(tree, g); err != nil {
		return nil, fmt.Errorf("failed to analyse diagram: %w", err)
	}
	if !g.Directed {
		return nil, ErrUndirected
	}

	d := &Diagram{
		Name:  unquote(g.Name),
		Attrs: make(map[string]string, len(g.Attrs)),
	}
	for k, v := range g.Attrs {
		d.Attrs[string(k)] = unquote(v)
	}

	defaults := nodeDefaults(tree)
	index := make(map[string]int)
	addNode := func(n Node) {
		if _, ok := index[n.ID]; ok {
			return
		}
		if n.Shape == "" {
			n.Shape = defaults["shape"]
		}
		index[n.ID] = len(d.Nodes)
		d.Nodes = append(d.Nodes, n)
	}

	for _, gn := range g.Nodes.Nodes {
		n := Node{ID: unquote(gn.Name), Attrs: make(map[string]string)}
		for k, v := range gn.Attrs {
			switch key, val := string(k), unquote(v); key {
			case "label":
				n.Label = val
			case "shape":
				n.Shape = val
			default:
				n.Attrs[key] = val
			}
		}
		if n.Label == "" {
			n.Label = n.ID
		}
		addNode(n)
	}

	seen := make(map[[2]string]bool)
	for _, ge := range g.Edges.Edges {
		e := Edge{From: unquote(ge.Src), To: unquote(ge.Dst), Attrs: make(map[string]string)}
		for _, id := range []string{e.From, e.To} {
			addNode(Node{ID: id, Label: id, Attrs: map[string]string{}})
		}
		key := [2]string{e.From, e.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		for k, v := range ge.Attrs {
			e.Attrs[string(k)] = unquote(v)
		}
		d.Edges = append(d.Edges, e)
	}

	return d, nil
}

// Node returns the node with the given ID.
func (d *Diagram) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// nodeDefaults collects the top-level `node [...]` statements.
func nodeDefaults(tree *ast.Graph) map[string]string {
	out := make(map[string]string)
	for _, stmt := range tree.StmtList {
		attrs, ok := stmt.(ast.NodeAttrs)
		if !ok {
			continue
		}
		for _, list := range attrs {
			for _, a := range list {
				out[a.Field.String()] = unquote(a.Value.String())
			}
		}
	}
	return out
}

// unquote strips DOT string quotes. Only \" is an escape in DOT; sequences
// such as \n or \l are label formatting and are kept as written.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
