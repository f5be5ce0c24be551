// Package scheduler decides which nodes of the execution graph may run next.
//
// A node is ready once every one of its dependencies has completed. The
// scheduler streams ready nodes to the executor over a channel and learns
// about outcomes through Done. A failed node takes all of its transitive
// dependents down with it: they are marked skipped and never emitted.
// Independent branches keep running.
package scheduler
