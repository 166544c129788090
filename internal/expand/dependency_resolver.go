package expand

// DependencyIndex exposes direct dependency edges in both directions
type DependencyIndex interface {
	Dependencies(id string) []string
	Dependents(id string) []string
}

// DependencyResolver provides utilities for walking resource dependencies
type DependencyResolver struct {
	index DependencyIndex
}

// NewDependencyResolver creates a new dependency resolver
func NewDependencyResolver(index DependencyIndex) *DependencyResolver {
	return &DependencyResolver{index: index}
}

// GetDependencies returns all direct dependencies of a resource
func (dr *DependencyResolver) GetDependencies(id string) []string {
	return dr.index.Dependencies(id)
}

// GetDependents returns all resources that directly depend on the given one
func (dr *DependencyResolver) GetDependents(id string) []string {
	return dr.index.Dependents(id)
}

// GetTransitiveDependencies returns all transitive dependencies of a resource
func (dr *DependencyResolver) GetTransitiveDependencies(id string) map[string]bool {
	return dr.walk(id, dr.GetDependencies)
}

// GetTransitiveDependents returns all resources that transitively depend on the given one
func (dr *DependencyResolver) GetTransitiveDependents(id string) map[string]bool {
	return dr.walk(id, dr.GetDependents)
}

func (dr *DependencyResolver) walk(start string, next func(string) []string) map[string]bool {
	result := make(map[string]bool)
	visited := make(map[string]bool)

	var traverse func(string)
	traverse = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, n := range next(id) {
			if n != start {
				result[n] = true
			}
			traverse(n)
		}
	}

	traverse(start)
	return result
}

// CategorizeDependencies takes a set of selected resources and returns:
// - Selected: the original selection
// - Dependencies: resources the selection needs
// - Dependents: resources affected by the selection
func (dr *DependencyResolver) CategorizeDependencies(selected map[string]bool) (
	chosen map[string]bool,
	dependencies map[string]bool,
	dependents map[string]bool,
) {
	chosen = make(map[string]bool)
	dependencies = make(map[string]bool)
	dependents = make(map[string]bool)

	for id := range selected {
		chosen[id] = true
	}

	for id := range selected {
		for dep := range dr.GetTransitiveDependencies(id) {
			if !chosen[dep] {
				dependencies[dep] = true
			}
		}
		for dept := range dr.GetTransitiveDependents(id) {
			if !chosen[dept] {
				dependents[dept] = true
			}
		}
	}

	return
}
