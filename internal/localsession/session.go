// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/inmemorystore"
	"github.com/specialistvlad/pipegrid/internal/inmemorytopology"
	"github.com/specialistvlad/pipegrid/internal/localexecutor"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/scheduler"
	"github.com/specialistvlad/pipegrid/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct{}

// NewSession builds the graph of plan's diagram, validates it against the
// bindings and the registry, and wires a local executor.
func (f *SessionFactory) NewSession(ctx context.Context, plan *session.Plan) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	if plan == nil || plan.Diagram == nil {
		return nil, errors.New("session requires a diagram")
	}
	if plan.Converter == nil || plan.Registry == nil {
		return nil, errors.New("session requires a converter and a registry")
	}
	model := plan.Model
	if model == nil {
		model = config.NewModel()
	}

	g, err := BuildGraph(ctx, plan)
	if err != nil {
		return nil, err
	}
	if err := Validate(ctx, g, plan); err != nil {
		return nil, err
	}

	sched := scheduler.New(g)
	exec := localexecutor.New(sched, g, plan.Registry, plan.Converter, model, plan.Options)
	logger.Debug("Local session created.", "stages", len(plan.Diagram.Nodes), "workers", plan.Options.Workers)

	return &Session{executor: exec, graph: g}, nil
}

// BuildGraph turns the diagram into an execution graph, attaching the binding
// of each node when there is one. Nodes keep diagram declaration order.
func BuildGraph(ctx context.Context, plan *session.Plan) (*graph.Manager, error) {
	topo := inmemorytopology.New()
	var stages map[string]*config.Stage
	if plan.Model != nil {
		stages = plan.Model.Stages
	}

	for _, dn := range plan.Diagram.Nodes {
		n := &node.Node{
			ID:      nodeid.Stage(dn.ID),
			Label:   dn.Label,
			Shape:   dn.Shape,
			Attrs:   dn.Attrs,
			Binding: stages[dn.ID],
		}
		if err := topo.AddNode(ctx, n); err != nil {
			return nil, err
		}
	}
	for _, e := range plan.Diagram.Edges {
		if err := topo.AddDependency(ctx, nodeid.Stage(e.From), nodeid.Stage(e.To)); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return graph.New(topo, inmemorystore.New()), nil
}

// Validate reports every problem that would make a run meaningless: cycles,
// bindings for nodes the diagram lacks, unknown runners, unbound nodes under
// strict bindings, and inputs that are not direct dependencies.
func Validate(ctx context.Context, g graph.Graph, plan *session.Plan) error {
	var problems []string

	var cycle *graph.CycleError
	if err := graph.Validate(ctx, g); err != nil {
		if !errors.As(err, &cycle) {
			return err
		}
		problems = append(problems, err.Error())
	}

	model := plan.Model
	if model == nil {
		model = config.NewModel()
	}
	strict := config.BoolOr(model.Pipeline.StrictBindings, false)

	ids := make([]string, 0, len(model.Stages))
	for id := range model.Stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := g.Node(ctx, nodeid.Stage(id)); !ok {
			msg := fmt.Sprintf("stage '%s' is bound but the diagram has no such node", id)
			if r := model.Stages[id].DeclRange; r.Filename != "" {
				msg = r.String() + ": " + msg
			}
			problems = append(problems, msg)
		}
	}

	for _, n := range g.AllNodes(ctx) {
		if n.Binding == nil && strict {
			problems = append(problems, fmt.Sprintf("stage '%s' has no binding and strict_bindings is set", n.Name()))
			continue
		}
		if plan.Registry != nil {
			if _, ok := plan.Registry.Lookup(n.Runner()); !ok {
				problems = append(problems, fmt.Sprintf("stage '%s': unknown runner '%s'", n.Name(), n.Runner()))
			}
		}
		if n.Binding == nil || len(n.Binding.Inputs) == 0 {
			continue
		}
		deps, err := g.DependenciesOf(ctx, n.ID)
		if err != nil {
			return err
		}
		depNames := make([]string, len(deps))
		for i, d := range deps {
			depNames[i] = d.Name()
		}
		seen := make(map[string]bool)
		for _, in := range n.Binding.Inputs {
			switch {
			case seen[in]:
				problems = append(problems, fmt.Sprintf("stage '%s': input '%s' is listed twice", n.Name(), in))
			case !slices.Contains(depNames, in):
				problems = append(problems, fmt.Sprintf("stage '%s': input '%s' is not a direct dependency in the diagram", n.Name(), in))
			}
			seen[in] = true
		}
	}

	if len(problems) > 0 {
		return &session.ValidationError{Problems: problems}
	}
	return nil
}

// Session implements session.Session for local runs.
type Session struct {
	executor executor.Executor
	graph    graph.Graph
}

// Executor returns the executor that was created and wired up by the factory.
func (s *Session) Executor() executor.Executor {
	return s.executor
}

// Graph returns the execution graph of the session.
func (s *Session) Graph() graph.Graph {
	return s.graph
}

// Close releases nothing for in-memory stores; it exists for the interface.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.")
	return nil
}
