// Package graph provides a unified facade for managing the execution graph,
// combining static topology (DAG structure) and dynamic state (execution
// status), plus the structural analysis the rest of the application needs.
//
// # Architecture: The Facade Pattern
//
//	┌─────────────────────────────────────┐
//	│           Graph Facade              │
//	│  (Unified API for scheduler,        │
//	│   executor and report builder)      │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │   Store    │  │   Store    │
//	  │ (Structure)│  │  (Status)  │
//	  └────────────┘  └────────────┘
//
// The Manager enforces the node lifecycle on top of the stores: a transition
// that the lifecycle does not allow fails with ErrInvalidTransition instead
// of silently overwriting state.
//
// # Analysis
//
// Validate, TopologicalOrder and Layers work on any Graph. Ties are always
// broken by diagram declaration order, so plans and reports are stable from
// one run to the next.
package graph
