// Package diagram reads and writes pipeline diagrams in the Graphviz DOT
// language.
//
// A diagram is documentation: a set of labelled nodes and the directed edges
// between them. This package attaches no behaviour to either. Binding a node
// to something executable happens elsewhere, in the binding files loaded by
// the hcl package.
//
//	digraph Pipeline {
//	  rankdir=LR;
//	  node [shape=box];
//	  S0 [label="Start"];
//	  S1 [label="Control Raw"];
//	  S0 -> S1;
//	}
package diagram
