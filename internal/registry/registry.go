package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredRunner holds the compiled Go parts of a runner.
//
// Fn must have the signature
//
//	func(ctx context.Context, in *runner.Inputs, args *T) (*table.Table, error)
//
// where NewInput returns a fresh *T.
type RegisteredRunner struct {
	NewInput func() any
	Fn       any
	// Description is a one-line summary shown by `pipegrid runners`.
	Description string
}

// Registry holds every runner registered for one application instance.
type Registry struct {
	runners map[string]*RegisteredRunner
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{runners: make(map[string]*RegisteredRunner)}
}

// RegisterRunner registers a runner under name. Registering the same name twice
// is a programming error and panics.
func (r *Registry) RegisterRunner(name string, runner *RegisteredRunner) {
	if _, exists := r.runners[name]; exists {
		panic(fmt.Sprintf("runner with name '%s' already registered", name))
	}
	slog.Debug("Registering runner.", "name", name)
	r.runners[name] = runner
}

// Lookup returns the runner registered under name.
func (r *Registry) Lookup(name string) (*RegisteredRunner, bool) {
	rr, ok := r.runners[name]
	return rr, ok
}

// Names returns all registered runner names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
