package localexecutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/executor"
	"github.com/specialistvlad/pipegrid/internal/graph"
	hclconf "github.com/specialistvlad/pipegrid/internal/hcl"
	"github.com/specialistvlad/pipegrid/internal/inmemorystore"
	"github.com/specialistvlad/pipegrid/internal/inmemorytopology"
	"github.com/specialistvlad/pipegrid/internal/metrics"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/scheduler"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/specialistvlad/pipegrid/modules/passthrough"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type tagInput struct {
	Value string `hcl:"value,optional"`
}

type noInput struct{}

// testRegistry holds runners that record their inputs as rows.
func testRegistry(t *testing.T, running *atomic.Int32, peak *atomic.Int32) *registry.Registry {
	t.Helper()
	r := registry.New()
	(&passthrough.Module{}).Register(r)

	// tag emits the stage name plus every upstream row, so tests can check
	// input order.
	r.RegisterRunner("tag", &registry.RegisteredRunner{
		NewInput: func() any { return new(tagInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, args *tagInput) (*table.Table, error) {
			if running != nil {
				now := running.Add(1)
				defer running.Add(-1)
				for {
					old := peak.Load()
					if now <= old || peak.CompareAndSwap(old, now) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
			}
			out := table.New("tag")
			for _, tbl := range in.Tables {
				for _, row := range tbl.Rows {
					out.Rows = append(out.Rows, row)
				}
			}
			v := in.Stage
			if args.Value != "" {
				v = args.Value
			}
			out.Rows = append(out.Rows, []cty.Value{cty.StringVal(v)})
			return out, nil
		},
	})
	r.RegisterRunner("fail", &registry.RegisteredRunner{
		NewInput: func() any { return new(noInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, _ *noInput) (*table.Table, error) {
			return nil, errors.New("boom")
		},
	})
	r.RegisterRunner("panic", &registry.RegisteredRunner{
		NewInput: func() any { return new(noInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, _ *noInput) (*table.Table, error) {
			panic("kaboom")
		},
	})
	r.RegisterRunner("busy", &registry.RegisteredRunner{
		NewInput: func() any { return new(noInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, _ *noInput) (*table.Table, error) {
			time.Sleep(100 * time.Millisecond)
			return table.New("done"), nil
		},
	})
	r.RegisterRunner("block", &registry.RegisteredRunner{
		NewInput: func() any { return new(noInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, _ *noInput) (*table.Table, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	require.NoError(t, r.Validate(context.Background()))
	return r
}

type stageDef struct {
	name    string
	runner  string
	inputs  []string
	timeout time.Duration
	args    string
}

func body(t *testing.T, src string) hcl.Body {
	t.Helper()
	f, diags := hclsyntax.ParseConfig([]byte(src), "args.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return f.Body
}

func buildGraph(t *testing.T, stages []stageDef, edges [][2]string) *graph.Manager {
	t.Helper()
	ctx := context.Background()
	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	for _, s := range stages {
		n := &node.Node{ID: nodeid.Stage(s.name), Label: s.name}
		if s.runner != "" {
			n.Binding = &config.Stage{ID: s.name, Runner: s.runner, Inputs: s.inputs, Timeout: s.timeout}
			if s.args != "" {
				n.Binding.Arguments = body(t, s.args)
			}
		}
		require.NoError(t, g.Topology().AddNode(ctx, n))
	}
	for _, e := range edges {
		require.NoError(t, g.Topology().AddDependency(ctx, nodeid.Stage(e[0]), nodeid.Stage(e[1])))
	}
	return g
}

func newExecutor(g *graph.Manager, reg *registry.Registry, opts executor.Options) *Executor {
	model := config.NewModel()
	model.Pipeline.Name = "test"
	return New(scheduler.New(g), g, reg, hclconf.NewConverter(), model, opts)
}

func tags(t *testing.T, g *graph.Manager, name string) []string {
	t.Helper()
	out, err := g.Output(context.Background(), nodeid.Stage(name))
	require.NoError(t, err)
	tbl, ok := out.(*table.Table)
	require.True(t, ok, "stage %s has no table output", name)
	var got []string
	for _, row := range tbl.Rows {
		got = append(got, row[0].AsString())
	}
	return got
}

func statusOf(t *testing.T, g *graph.Manager, name string) node.Status {
	t.Helper()
	st, ok := g.NodeStatus(context.Background(), nodeid.Stage(name))
	require.True(t, ok)
	return st
}

func TestExecute_PassesInputsInEdgeOrder(t *testing.T) {
	// Arrange
	g := buildGraph(t,
		[]stageDef{{name: "Start"}, {name: "A", runner: "tag"}, {name: "B", runner: "tag"}, {name: "Join", runner: "tag"}},
		[][2]string{{"Start", "A"}, {"Start", "B"}, {"B", "Join"}, {"A", "Join"}},
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 4})

	// Act
	err := exec.Execute(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, node.StatusCompleted, statusOf(t, g, "Start"))
	assert.Equal(t, []string{"B", "A", "Join"}, tags(t, g, "Join"))
}

func TestExecute_BindingInputsOverrideOrder(t *testing.T) {
	g := buildGraph(t,
		[]stageDef{{name: "A", runner: "tag"}, {name: "B", runner: "tag"}, {name: "Join", runner: "tag", inputs: []string{"A", "B"}}},
		[][2]string{{"B", "Join"}, {"A", "Join"}},
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 2})

	require.NoError(t, exec.Execute(context.Background()))
	assert.Equal(t, []string{"A", "B", "Join"}, tags(t, g, "Join"))
}

func TestExecute_DecodesArgumentsWithPipelineContext(t *testing.T) {
	g := buildGraph(t,
		[]stageDef{{name: "A", runner: "tag", args: `value = "${pipeline.name}-${pipeline.run_id}"`}},
		nil,
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1, RunID: "r1"})

	require.NoError(t, exec.Execute(context.Background()))
	assert.Equal(t, []string{"test-r1"}, tags(t, g, "A"))
}

func TestExecute_FailureSkipsDependentsOnly(t *testing.T) {
	// Arrange
	g := buildGraph(t,
		[]stageDef{{name: "Start"}, {name: "Bad", runner: "fail"}, {name: "After", runner: "tag"}, {name: "Good", runner: "tag"}},
		[][2]string{{"Start", "Bad"}, {"Bad", "After"}, {"Start", "Good"}},
	)
	m := metrics.New()
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 2, Metrics: m})

	// Act
	err := exec.Execute(context.Background())

	// Assert
	var runErr *executor.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"Bad"}, runErr.Stages())
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, node.StatusFailed, statusOf(t, g, "Bad"))
	assert.Equal(t, node.StatusSkipped, statusOf(t, g, "After"))
	assert.Equal(t, node.StatusCompleted, statusOf(t, g, "Good"))
}

func TestExecute_FailFastCancelsInFlightStages(t *testing.T) {
	g := buildGraph(t,
		[]stageDef{{name: "Bad", runner: "fail"}, {name: "Slow", runner: "block"}, {name: "Later", runner: "tag"}},
		[][2]string{{"Slow", "Later"}},
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 2, FailFast: true})

	done := make(chan error, 1)
	go func() { done <- exec.Execute(context.Background()) }()

	select {
	case err := <-done:
		var runErr *executor.RunError
		require.ErrorAs(t, err, &runErr)
		assert.Contains(t, runErr.Stages(), "Bad")
	case <-time.After(5 * time.Second):
		t.Fatal("fail-fast did not stop the blocking stage")
	}
	assert.Equal(t, node.StatusSkipped, statusOf(t, g, "Later"))
	reason, err := g.Error(context.Background(), nodeid.Stage("Later"))
	require.NoError(t, err)
	assert.True(t, errors.Is(reason, executor.ErrFailFast) || errors.Is(reason, scheduler.ErrDependencyFailed), "unexpected skip reason %v", reason)
}

func TestExecute_RecoversRunnerPanic(t *testing.T) {
	g := buildGraph(t, []stageDef{{name: "P", runner: "panic"}}, nil)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1})

	err := exec.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: kaboom")
	assert.Equal(t, node.StatusFailed, statusOf(t, g, "P"))
}

func TestExecute_StageTimeout(t *testing.T) {
	g := buildGraph(t, []stageDef{{name: "Slow", runner: "block", timeout: 50 * time.Millisecond}}, nil)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1})

	err := exec.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 50ms")
}

func TestExecute_StageTimeoutWithRunnerIgnoringContext(t *testing.T) {
	g := buildGraph(t,
		[]stageDef{{name: "Busy", runner: "busy", timeout: 10 * time.Millisecond}, {name: "After", runner: "tag"}},
		[][2]string{{"Busy", "After"}},
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1})

	err := exec.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 10ms")
	assert.Equal(t, node.StatusFailed, statusOf(t, g, "Busy"))
	assert.Equal(t, node.StatusSkipped, statusOf(t, g, "After"))
}

func TestExecute_InvalidArgumentsFailStage(t *testing.T) {
	g := buildGraph(t, []stageDef{{name: "A", runner: "tag", args: `unknown = 1`}}, nil)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1})

	err := exec.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments")
}

func TestExecute_RespectsWorkerLimit(t *testing.T) {
	// Arrange
	var stages []stageDef
	for i := range 8 {
		stages = append(stages, stageDef{name: fmt.Sprintf("S%d", i), runner: "tag"})
	}
	var running, peak atomic.Int32
	g := buildGraph(t, stages, nil)
	exec := newExecutor(g, testRegistry(t, &running, &peak), executor.Options{Workers: 3})

	// Act
	require.NoError(t, exec.Execute(context.Background()))

	// Assert
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(2))
}

func TestExecute_ExternalCancellation(t *testing.T) {
	g := buildGraph(t,
		[]stageDef{{name: "Slow", runner: "block"}, {name: "Next", runner: "tag"}},
		[][2]string{{"Slow", "Next"}},
	)
	exec := newExecutor(g, testRegistry(t, nil, nil), executor.Options{Workers: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := exec.Execute(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, node.StatusSkipped, statusOf(t, g, "Next"))
}

func TestExecute_PassesOutputWriter(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New()
	reg.RegisterRunner("say", &registry.RegisteredRunner{
		NewInput: func() any { return new(noInput) },
		Fn: func(ctx context.Context, in *runner.Inputs, _ *noInput) (*table.Table, error) {
			fmt.Fprintf(in.Writer(), "hello from %s\n", in.Stage)
			return nil, nil
		},
	})
	g := buildGraph(t, []stageDef{{name: "S", runner: "say"}}, nil)
	exec := newExecutor(g, reg, executor.Options{Workers: 1, Out: &buf})

	require.NoError(t, exec.Execute(context.Background()))
	assert.Equal(t, "hello from S\n", buf.String())
	assert.Empty(t, tags(t, g, "S"))
}
