package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/model"
)

func node(id string, kind model.Kind, deps ...string) model.ResourceNode {
	return model.NewResourceNode(id, kind, nil, deps...)
}

func mustGraph(t *testing.T, nodes ...model.ResourceNode) *Graph {
	t.Helper()
	g := NewGraph()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			require.NoError(t, g.AddEdge(n.ID, dep))
		}
	}
	return g
}

func TestGraph_AddNodeRejectsDuplicates(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(node("network", model.KindNetwork)))

	err := g.AddNode(node("network", model.KindCluster))
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "network", dup.ID)
}

func TestGraph_AddImportCollidesWithNode(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(node("zone", model.KindNetwork)))

	err := g.AddImport(model.ImportRef{ID: "zone", Kind: model.KindDnsZone, Key: "example.com"})
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "zone", dup.ID)
}

func TestGraph_AddEdgeErrors(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(node("cluster", model.KindCluster)))
	require.NoError(t, g.AddImport(model.ImportRef{ID: "zone", Kind: model.KindDnsZone, Key: "example.com"}))

	t.Run("unknown target", func(t *testing.T) {
		err := g.AddEdge("cluster", "network")
		var unknown *UnknownNodeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "network", unknown.ID)
		assert.Equal(t, "cluster", unknown.From)
	})

	t.Run("unknown source", func(t *testing.T) {
		err := g.AddEdge("service", "cluster")
		var unknown *UnknownNodeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "service", unknown.ID)
	})

	t.Run("imports cannot depend on anything", func(t *testing.T) {
		err := g.AddEdge("zone", "cluster")
		var unknown *UnknownNodeError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("self edge is a cycle", func(t *testing.T) {
		err := g.AddEdge("cluster", "cluster")
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"cluster", "cluster"}, cycle.Path)
	})

	t.Run("edge to import", func(t *testing.T) {
		require.NoError(t, g.AddEdge("cluster", "zone"))
		assert.Equal(t, []string{"zone"}, g.Dependencies("cluster"))
		assert.Equal(t, []string{"cluster"}, g.Dependents("zone"))
	})
}

func TestGraph_Queries(t *testing.T) {
	g := mustGraph(t,
		node("service", model.KindService, "task", "cluster"),
		node("task", model.KindTask, "role"),
		node("cluster", model.KindCluster, "network"),
		node("network", model.KindNetwork),
		node("role", model.KindRole),
	)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []string{"cluster", "network", "role", "service", "task"}, g.IDs())
	assert.Equal(t, []string{"cluster", "task"}, g.Dependencies("service"))
	assert.Equal(t, []string{"service"}, g.Dependents("task"))
	assert.Empty(t, g.Dependencies("network"))
	assert.Equal(t, [][2]string{
		{"cluster", "network"},
		{"service", "cluster"},
		{"service", "task"},
		{"task", "role"},
	}, g.Edges())
	assert.NoError(t, g.Validate())
}

func TestGraph_ValidateReportsCyclePath(t *testing.T) {
	g := mustGraph(t,
		node("a", model.KindNetwork, "b"),
		node("b", model.KindCluster, "c"),
		node("c", model.KindTask, "a"),
		node("d", model.KindService, "a"),
	)

	err := g.Validate()
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
	assertValidCycle(t, g, cycle.Path)
}

func TestGraph_ValidateCycleNotAtRoot(t *testing.T) {
	// a reaches the cycle b -> c -> b; the path must not include a
	g := mustGraph(t,
		node("a", model.KindNetwork, "b"),
		node("b", model.KindCluster, "c"),
		node("c", model.KindTask, "b"),
	)

	var cycle *CycleError
	require.True(t, errors.As(g.Validate(), &cycle))
	assert.Equal(t, []string{"b", "c", "b"}, cycle.Path)
}

func TestFromStack(t *testing.T) {
	stack := &model.Stack{
		Imports: []model.ImportRef{{ID: "zone", Kind: model.KindDnsZone, Key: "example.com"}},
		Resources: []model.ResourceDeclaration{
			{ID: "lb", Kind: model.KindLoadBalancer, DependsOn: []string{"zone", "network"}},
			{ID: "network", Kind: model.KindNetwork},
		},
	}

	g, err := FromStack(stack)
	require.NoError(t, err)
	assert.True(t, g.IsImport("zone"))
	assert.False(t, g.IsImport("lb"))
	assert.Equal(t, []string{"network", "zone"}, g.Dependencies("lb"))

	t.Run("unknown dependency", func(t *testing.T) {
		bad := &model.Stack{Resources: []model.ResourceDeclaration{
			{ID: "cluster", Kind: model.KindCluster, DependsOn: []string{"network"}},
		}}
		_, err := FromStack(bad)
		var unknown *UnknownNodeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "network", unknown.ID)
		assert.Equal(t, "cluster", unknown.From)
	})

	t.Run("duplicate id", func(t *testing.T) {
		bad := &model.Stack{Resources: []model.ResourceDeclaration{
			{ID: "network", Kind: model.KindNetwork},
			{ID: "network", Kind: model.KindNetwork},
		}}
		_, err := FromStack(bad)
		var dup *DuplicateIDError
		require.ErrorAs(t, err, &dup)
	})
}

// assertValidCycle checks the path is closed and every hop is a real edge
func assertValidCycle(t *testing.T, g *Graph, path []string) {
	t.Helper()
	require.GreaterOrEqual(t, len(path), 2)
	assert.Equal(t, path[0], path[len(path)-1], "cycle path must be closed")
	for i := 0; i < len(path)-1; i++ {
		assert.Contains(t, g.Dependencies(path[i]), path[i+1], "%s -> %s is not an edge", path[i], path[i+1])
	}
}
