package expand

import (
	"github.com/sourceplane/liteiac/internal/model"
)

// Expander turns config references into explicit dependency edges
type Expander struct {
	stack *model.Stack
}

// NewExpander creates a new expander for a normalized stack
func NewExpander(stack *model.Stack) *Expander {
	return &Expander{stack: stack}
}

// Expansion is the stack with implicit dependencies merged into dependsOn,
// along with which edges were inferred from references
type Expansion struct {
	Stack    *model.Stack
	Inferred map[string][]string // resource id -> ids added from references
}

// Expand merges every ${id.attr} reference into the owning resource's
// dependsOn set. The input stack is not modified.
func (e *Expander) Expand() *Expansion {
	expanded := *e.stack
	expanded.Resources = make([]model.ResourceDeclaration, 0, len(e.stack.Resources))
	inferred := make(map[string][]string)

	for _, decl := range e.stack.Resources {
		explicit := make(map[string]bool, len(decl.DependsOn))
		for _, dep := range decl.DependsOn {
			explicit[dep] = true
		}

		deps := append([]string(nil), decl.DependsOn...)
		for _, id := range ReferencedIDs(decl.Config) {
			if explicit[id] {
				continue
			}
			deps = append(deps, id)
			inferred[decl.ID] = append(inferred[decl.ID], id)
		}

		decl.DependsOn = model.SortedSet(deps)
		expanded.Resources = append(expanded.Resources, decl)
	}

	return &Expansion{Stack: &expanded, Inferred: inferred}
}

// IsInferred reports whether the edge id -> dep came only from a reference
func (x *Expansion) IsInferred(id, dep string) bool {
	for _, d := range x.Inferred[id] {
		if d == dep {
			return true
		}
	}
	return false
}
