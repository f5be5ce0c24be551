// Package transform provides single-input table transformations: derive,
// select, filter, sort and single_row.
package transform

import (
	"github.com/specialistvlad/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("derive", &registry.RegisteredRunner{
		NewInput:    func() any { return new(DeriveInput) },
		Fn:          OnRunDerive,
		Description: "Add or replace columns computed by row expressions.",
	})
	r.RegisterRunner("select", &registry.RegisteredRunner{
		NewInput:    func() any { return new(SelectInput) },
		Fn:          OnRunSelect,
		Description: "Keep, reorder and rename columns.",
	})
	r.RegisterRunner("filter", &registry.RegisteredRunner{
		NewInput:    func() any { return new(FilterInput) },
		Fn:          OnRunFilter,
		Description: "Keep the rows for which a predicate is true.",
	})
	r.RegisterRunner("sort", &registry.RegisteredRunner{
		NewInput:    func() any { return new(SortInput) },
		Fn:          OnRunSort,
		Description: "Stable sort by one or more columns, nulls last.",
	})
	r.RegisterRunner("single_row", &registry.RegisteredRunner{
		NewInput:    func() any { return new(SingleRowInput) },
		Fn:          OnRunSingleRow,
		Description: "Reduce the table to one row.",
	})
}
