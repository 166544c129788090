package planner

import (
	"fmt"
	"sort"

	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/model"
)

// BuildOptions tunes plan construction
type BuildOptions struct {
	Metadata model.Metadata
	// Targets restricts the plan to these ids and their transitive dependencies
	Targets []string
}

// Build layers the graph into a deployment plan using Kahn's algorithm.
// Each layer holds every node whose dependencies are all in earlier layers,
// sorted by id so identical graphs always produce identical plans.
func Build(g *Graph, opts BuildOptions) (*model.Plan, error) {
	if g == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	included, err := selectNodes(g, opts.Targets)
	if err != nil {
		return nil, err
	}

	// In-degree counts managed dependencies only; imports are pre-satisfied
	inDegree := make(map[string]int, len(included))
	for id := range included {
		inDegree[id] = 0
		for _, dep := range g.Dependencies(id) {
			if !g.IsImport(dep) {
				inDegree[id]++
			}
		}
	}

	ready := make([]string, 0)
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	plan := &model.Plan{
		APIVersion: model.APIVersion,
		Kind:       model.KindPlan,
		Metadata:   opts.Metadata,
		Layers:     make([]model.Layer, 0),
		Resources:  make([]model.ResourceNode, 0, len(included)),
	}

	placed := 0
	for len(ready) > 0 {
		layer := model.Layer{Index: len(plan.Layers), Nodes: ready}
		plan.Layers = append(plan.Layers, layer)
		placed += len(ready)

		next := make([]string, 0)
		for _, id := range ready {
			for _, dependent := range g.Dependents(id) {
				if !included[dependent] {
					continue
				}
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		ready = next
	}

	if placed != len(included) {
		stuck := make([]string, 0, len(included)-placed)
		for id, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		if cycle := g.findCycle(stuck); cycle != nil {
			return nil, &CycleError{Path: cycle}
		}
		return nil, fmt.Errorf("failed to layer graph: %d nodes unschedulable: %v", len(stuck), stuck)
	}

	importsUsed := make(map[string]bool)
	for _, id := range g.IDs() {
		if !included[id] {
			continue
		}
		node, _ := g.Node(id)
		node.DependsOn = g.Dependencies(id)
		plan.Resources = append(plan.Resources, node)
		for _, dep := range node.DependsOn {
			if g.IsImport(dep) {
				importsUsed[dep] = true
			}
		}
	}
	for _, ref := range g.Imports() {
		if importsUsed[ref.ID] {
			plan.Imports = append(plan.Imports, ref)
		}
	}

	return plan, nil
}

// selectNodes returns the managed ids to plan: all of them, or the targets
// plus everything they transitively depend on
func selectNodes(g *Graph, targets []string) (map[string]bool, error) {
	included := make(map[string]bool, g.Len())
	if len(targets) == 0 {
		for _, id := range g.IDs() {
			included[id] = true
		}
		return included, nil
	}

	resolver := expand.NewDependencyResolver(g)
	for _, target := range model.SortedSet(targets) {
		if _, ok := g.Node(target); !ok {
			return nil, &UnknownNodeError{ID: target}
		}
		included[target] = true
		for dep := range resolver.GetTransitiveDependencies(target) {
			if !g.IsImport(dep) {
				included[dep] = true
			}
		}
	}
	return included, nil
}
