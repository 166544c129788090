package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/model"
)

// mapIndex is a DependencyIndex over a literal adjacency map
type mapIndex map[string][]string

func (m mapIndex) Dependencies(id string) []string { return m[id] }

func (m mapIndex) Dependents(id string) []string {
	var out []string
	for from, deps := range m {
		for _, dep := range deps {
			if dep == id {
				out = append(out, from)
			}
		}
	}
	return model.SortedSet(out)
}

func testIndex() mapIndex {
	return mapIndex{
		"network": nil,
		"role":    nil,
		"cluster": {"network"},
		"task":    {"cluster", "role"},
		"service": {"task"},
	}
}

func TestDependencyResolver_Transitive(t *testing.T) {
	dr := NewDependencyResolver(testIndex())

	assert.Equal(t, map[string]bool{"task": true, "cluster": true, "role": true, "network": true},
		dr.GetTransitiveDependencies("service"))
	assert.Equal(t, map[string]bool{"cluster": true, "task": true, "service": true},
		dr.GetTransitiveDependents("network"))
	assert.Empty(t, dr.GetTransitiveDependencies("network"))
}

func TestDependencyResolver_Categorize(t *testing.T) {
	dr := NewDependencyResolver(testIndex())

	chosen, deps, dependents := dr.CategorizeDependencies(map[string]bool{"cluster": true})
	assert.Equal(t, map[string]bool{"cluster": true}, chosen)
	assert.Equal(t, map[string]bool{"network": true}, deps)
	assert.Equal(t, map[string]bool{"service": true, "task": true}, dependents)
}

func TestResourceAnalyzer(t *testing.T) {
	stack := &model.Stack{Resources: []model.ResourceDeclaration{
		{ID: "network", Kind: model.KindNetwork},
		{ID: "role", Kind: model.KindRole},
		{ID: "cluster", Kind: model.KindCluster, Config: map[string]interface{}{"vpc": "${network.vpcId}"}},
		{ID: "task", Kind: model.KindTask, DependsOn: []string{"cluster", "role"}},
		{ID: "service", Kind: model.KindService, DependsOn: []string{"task"}},
	}}
	x := NewExpander(stack).Expand()
	analyzer := NewResourceAnalyzer(x, testIndex())

	summary, err := analyzer.Describe("cluster")
	require.NoError(t, err)
	assert.Equal(t, model.KindCluster, summary.Kind)
	assert.Equal(t, []string{"network"}, summary.Dependencies)
	assert.Equal(t, []string{"network"}, summary.Inferred)
	assert.Equal(t, []string{"task"}, summary.Dependents)
	assert.Equal(t, []string{"service", "task"}, summary.AllAffected)

	_, err = analyzer.Describe("database")
	assert.Error(t, err)

	all := analyzer.ListAll()
	require.Len(t, all, 5)
	assert.Equal(t, "cluster", all[0].ID)
	assert.Equal(t, "task", all[4].ID)
}
