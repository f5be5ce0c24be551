// Package inmemorytopology provides a simple, thread-safe, in-memory
// implementation of the topologystore.Store interface.
//
// Edges are kept in two adjacency lists (dependencies and dependents) so both
// directions can be walked without scanning. Slices rather than sets preserve
// the order in which edges were declared in the diagram.
package inmemorytopology
