package expand

import (
	"fmt"
	"sort"

	"github.com/sourceplane/liteiac/internal/model"
)

// ResourceAnalyzer summarizes resources with their resolved edges
type ResourceAnalyzer struct {
	expansion *Expansion
	resolver  *DependencyResolver
}

// NewResourceAnalyzer creates a new resource analyzer
func NewResourceAnalyzer(expansion *Expansion, index DependencyIndex) *ResourceAnalyzer {
	return &ResourceAnalyzer{
		expansion: expansion,
		resolver:  NewDependencyResolver(index),
	}
}

// ResourceSummary is one resource with its direct and transitive edges
type ResourceSummary struct {
	ID           string
	Kind         model.Kind
	Dependencies []string
	Inferred     []string
	Dependents   []string
	AllDeps      []string
	AllAffected  []string
}

// Describe returns the summary for a single resource
func (ra *ResourceAnalyzer) Describe(id string) (*ResourceSummary, error) {
	for _, decl := range ra.expansion.Stack.Resources {
		if decl.ID == id {
			return ra.summarize(decl), nil
		}
	}
	return nil, fmt.Errorf("resource not found: %s", id)
}

// ListAll summarizes every resource sorted by id
func (ra *ResourceAnalyzer) ListAll() []*ResourceSummary {
	result := make([]*ResourceSummary, 0, len(ra.expansion.Stack.Resources))
	for _, decl := range ra.expansion.Stack.Resources {
		result = append(result, ra.summarize(decl))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (ra *ResourceAnalyzer) summarize(decl model.ResourceDeclaration) *ResourceSummary {
	return &ResourceSummary{
		ID:           decl.ID,
		Kind:         decl.Kind,
		Dependencies: ra.resolver.GetDependencies(decl.ID),
		Inferred:     model.SortedSet(ra.expansion.Inferred[decl.ID]),
		Dependents:   ra.resolver.GetDependents(decl.ID),
		AllDeps:      keys(ra.resolver.GetTransitiveDependencies(decl.ID)),
		AllAffected:  keys(ra.resolver.GetTransitiveDependents(decl.ID)),
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
