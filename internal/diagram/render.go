package diagram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// StatusColors maps a stage status name to the fill colour used by Render.
var StatusColors = map[string]string{
	"running":   "lightblue",
	"completed": "palegreen",
	"failed":    "salmon",
	"skipped":   "lightgrey",
}

// RenderOptions controls Render.
type RenderOptions struct {
	// RankDir overrides the diagram's rankdir when set.
	RankDir string
	// Statuses maps a node ID to a status name. Nodes with a status found in
	// StatusColors are filled with that colour.
	Statuses map[string]string
}

var plainID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Render emits canonical DOT for the diagram.
func (d *Diagram) Render(opts RenderOptions) (string, error) {
	name := d.Name
	if name == "" {
		name = "pipeline"
	}
	name = quoteID(name)

	g := gographviz.NewGraph()
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	attrs := make(map[string]string, len(d.Attrs)+1)
	for k, v := range d.Attrs {
		attrs[k] = v
	}
	if opts.RankDir != "" {
		attrs["rankdir"] = opts.RankDir
	}
	for k, v := range attrs {
		if err := g.AddAttr(name, k, quoteValue(v)); err != nil {
			return "", fmt.Errorf("graph attribute %q: %w", k, err)
		}
	}

	for _, n := range d.Nodes {
		nodeAttrs := make(map[string]string, len(n.Attrs)+4)
		for k, v := range n.Attrs {
			nodeAttrs[k] = quoteValue(v)
		}
		nodeAttrs["label"] = quoteValue(n.Label)
		if n.Shape != "" {
			nodeAttrs["shape"] = quoteValue(n.Shape)
		}
		if color, ok := StatusColors[opts.Statuses[n.ID]]; ok {
			nodeAttrs["style"] = "filled"
			nodeAttrs["fillcolor"] = color
		}
		if err := g.AddNode(name, quoteID(n.ID), nodeAttrs); err != nil {
			return "", fmt.Errorf("node %q: %w", n.ID, err)
		}
	}

	for _, e := range d.Edges {
		edgeAttrs := make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			edgeAttrs[k] = quoteValue(v)
		}
		if err := g.AddEdge(quoteID(e.From), quoteID(e.To), true, edgeAttrs); err != nil {
			return "", fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	return g.String(), nil
}

func quoteID(s string) string {
	if plainID.MatchString(s) {
		return s
	}
	return quoteValue(s)
}

func quoteValue(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
