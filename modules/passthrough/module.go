// Package passthrough provides the runner used for diagram nodes without a
// binding, such as a Start node.
package passthrough

import (
	"context"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input is empty; passthrough takes no arguments.
type Input struct{}

// OnRunPassthrough returns its input unchanged. With no inputs it returns an
// empty table; with several it forwards the first one.
func OnRunPassthrough(ctx context.Context, in *runner.Inputs, _ *Input) (*table.Table, error) {
	switch len(in.Tables) {
	case 0:
		return table.New(), nil
	case 1:
		return in.Tables[0], nil
	}
	in.Log().Warn("Passthrough stage has several inputs, forwarding the first.", "inputs", in.Names, "forwarded", in.Names[0])
	return in.Tables[0], nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("passthrough", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunPassthrough,
		Description: "Forward the single upstream table unchanged.",
	})
}
