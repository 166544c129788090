package planner

import (
	"sort"

	"github.com/sourceplane/liteiac/internal/model"
)

// Graph is the dependency graph of managed resources and external imports.
// Edges point from a node to the ids it depends on.
type Graph struct {
	nodes      map[string]model.ResourceNode
	imports    map[string]model.ImportRef
	deps       map[string]map[string]bool
	dependents map[string]map[string]bool
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]model.ResourceNode),
		imports:    make(map[string]model.ImportRef),
		deps:       make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// FromStack builds a graph from a normalized stack: imports first, then
// resources, then one edge per declared dependency
func FromStack(stack *model.Stack) (*Graph, error) {
	g := NewGraph()
	for _, ref := range stack.Imports {
		if err := g.AddImport(ref); err != nil {
			return nil, err
		}
	}
	for _, decl := range stack.Resources {
		if err := g.AddNode(decl.Node()); err != nil {
			return nil, err
		}
	}
	for _, id := range g.IDs() {
		for _, dep := range g.nodes[id].DependsOn {
			if err := g.AddEdge(id, dep); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddNode adds a managed resource. Declared dependencies are not linked
// until AddEdge is called for them.
func (g *Graph) AddNode(node model.ResourceNode) error {
	if g.has(node.ID) {
		return &DuplicateIDError{ID: node.ID}
	}
	node.DependsOn = model.SortedSet(node.DependsOn)
	g.nodes[node.ID] = node
	g.deps[node.ID] = make(map[string]bool)
	return nil
}

// AddImport marks an id as an external import resolved by lookup
func (g *Graph) AddImport(ref model.ImportRef) error {
	if g.has(ref.ID) {
		return &DuplicateIDError{ID: ref.ID}
	}
	g.imports[ref.ID] = ref
	return nil
}

// AddEdge records that from depends on to
func (g *Graph) AddEdge(from, to string) error {
	// imports are pre-satisfied and never depend on anything
	if _, ok := g.nodes[from]; !ok {
		return &UnknownNodeError{ID: from}
	}
	if !g.has(to) {
		return &UnknownNodeError{ID: to, From: from}
	}
	if from == to {
		return &CycleError{Path: []string{from, from}}
	}

	g.deps[from][to] = true
	if g.dependents[to] == nil {
		g.dependents[to] = make(map[string]bool)
	}
	g.dependents[to][from] = true
	return nil
}

func (g *Graph) has(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	_, ok := g.imports[id]
	return ok
}

// Node returns the managed resource with the given id
func (g *Graph) Node(id string) (model.ResourceNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IsImport reports whether id is an external import
func (g *Graph) IsImport(id string) bool {
	_, ok := g.imports[id]
	return ok
}

// Len returns the number of managed nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IDs returns managed node ids in ascending order
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Imports returns the external imports ordered by id
func (g *Graph) Imports() []model.ImportRef {
	refs := make([]model.ImportRef, 0, len(g.imports))
	for _, ref := range g.imports {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// Dependencies returns the direct dependencies of id, imports included
func (g *Graph) Dependencies(id string) []string {
	return sortedKeys(g.deps[id])
}

// Dependents returns the nodes that directly depend on id
func (g *Graph) Dependents(id string) []string {
	return sortedKeys(g.dependents[id])
}

// Edges returns every (from, to) pair sorted by from then to
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	for _, from := range g.IDs() {
		for _, to := range g.Dependencies(from) {
			edges = append(edges, [2]string{from, to})
		}
	}
	return edges
}

// Validate checks that the graph is acyclic
func (g *Graph) Validate() error {
	if cycle := g.findCycle(g.IDs()); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// findCycle runs a depth-first traversal over dependency edges starting from
// each root in order, tracking the recursion stack. The first back edge found
// yields the stack slice from its target to the top, closed with the target.
// Only nodes in roots are traversed.
func (g *Graph) findCycle(roots []string) []string {
	allowed := make(map[string]bool, len(roots))
	for _, id := range roots {
		allowed[id] = true
	}
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range g.Dependencies(id) {
			if !allowed[dep] {
				continue
			}
			if onStack[dep] {
				for i := range stack {
					if stack[i] == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range roots {
		if visited[id] {
			continue
		}
		if visit(id) {
			return cycle
		}
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
