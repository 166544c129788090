package planner

import (
	"fmt"
	"strings"
)

// DuplicateIDError is returned when a node or import id is added twice
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q", e.ID)
}

// UnknownNodeError is returned when an edge references an id that is neither
// a node nor an external import
type UnknownNodeError struct {
	ID   string
	From string // the node declaring the dependency, empty if ID is the source
}

func (e *UnknownNodeError) Error() string {
	if e.From != "" && e.From != e.ID {
		return fmt.Sprintf("unknown node %q (referenced by %q)", e.ID, e.From)
	}
	return fmt.Sprintf("unknown node %q", e.ID)
}

// CycleError reports a dependency cycle. Path starts and ends with the same id
// and each id depends on the next one.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}
