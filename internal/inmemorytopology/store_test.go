package inmemorytopology

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(name string) *node.Node {
	return &node.Node{ID: nodeid.Stage(name), Label: name}
}

func TestAddNode_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := stage("S0")
	require.NoError(t, s.AddNode(ctx, first))
	require.NoError(t, s.AddNode(ctx, stage("S0")))

	nodes := s.AllNodes(ctx)
	require.Len(t, nodes, 1)
	assert.Same(t, first, nodes[0])
}

func TestAddNode_RejectsInvalid(t *testing.T) {
	s := New()
	ctx := context.Background()
	assert.Error(t, s.AddNode(ctx, nil))
	assert.Error(t, s.AddNode(ctx, &node.Node{}))
}

func TestAllNodes_InsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, name := range []string{"S2", "S0", "S1"} {
		require.NoError(t, s.AddNode(ctx, stage(name)))
	}

	var names []string
	for _, n := range s.AllNodes(ctx) {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"S2", "S0", "S1"}, names)
}

func TestAddDependency(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, stage("A")))
	require.NoError(t, s.AddNode(ctx, stage("B")))
	require.NoError(t, s.AddNode(ctx, stage("C")))

	require.NoError(t, s.AddDependency(ctx, nodeid.Stage("B"), nodeid.Stage("C")))
	require.NoError(t, s.AddDependency(ctx, nodeid.Stage("A"), nodeid.Stage("C")))
	require.NoError(t, s.AddDependency(ctx, nodeid.Stage("A"), nodeid.Stage("C")))

	deps, err := s.DependenciesOf(ctx, nodeid.Stage("C"))
	require.NoError(t, err)
	assert.Equal(t, []nodeid.Address{nodeid.Stage("B"), nodeid.Stage("A")}, deps)

	dependents, err := s.DependentsOf(ctx, nodeid.Stage("A"))
	require.NoError(t, err)
	assert.Equal(t, []nodeid.Address{nodeid.Stage("C")}, dependents)

	none, err := s.DependenciesOf(ctx, nodeid.Stage("A"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAddDependency_UnknownNodes(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, stage("A")))

	err := s.AddDependency(ctx, nodeid.Stage("missing"), nodeid.Stage("A"))
	require.ErrorContains(t, err, "source node 'stage.missing'")

	err = s.AddDependency(ctx, nodeid.Stage("A"), nodeid.Stage("missing"))
	require.ErrorContains(t, err, "target node 'stage.missing'")

	_, err = s.DependenciesOf(ctx, nodeid.Stage("missing"))
	require.Error(t, err)
	_, err = s.DependentsOf(ctx, nodeid.Stage("missing"))
	require.Error(t, err)
}

func TestDependenciesOf_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, stage("A")))
	require.NoError(t, s.AddNode(ctx, stage("B")))
	require.NoError(t, s.AddDependency(ctx, nodeid.Stage("A"), nodeid.Stage("B")))

	deps, err := s.DependenciesOf(ctx, nodeid.Stage("B"))
	require.NoError(t, err)
	deps[0] = nodeid.Stage("mutated")

	again, err := s.DependenciesOf(ctx, nodeid.Stage("B"))
	require.NoError(t, err)
	assert.Equal(t, nodeid.Stage("A"), again[0])
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, stage("root")))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("S%d", i)
			assert.NoError(t, s.AddNode(ctx, stage(name)))
			assert.NoError(t, s.AddDependency(ctx, nodeid.Stage("root"), nodeid.Stage(name)))
			_, _ = s.DependenciesOf(ctx, nodeid.Stage(name))
			_ = s.AllNodes(ctx)
		}(i)
	}
	wg.Wait()

	dependents, err := s.DependentsOf(ctx, nodeid.Stage("root"))
	require.NoError(t, err)
	assert.Len(t, dependents, 50)
	assert.Len(t, s.AllNodes(ctx), 51)
}
