package runner

import (
	"fmt"
	"strings"
)

// BackendError is a failure reported by the backend for a single node
type BackendError struct {
	NodeID string
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// PartialApplyError is returned when a layer had failures. Outputs of the
// succeeded nodes are recorded, so applying again resumes from there.
type PartialApplyError struct {
	Succeeded []string
	First     *BackendError
	Failed    []string
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("partial apply: %d succeeded [%s], first failure: %v",
		len(e.Succeeded), strings.Join(e.Succeeded, ", "), e.First)
}

func (e *PartialApplyError) Unwrap() error {
	if e.First == nil {
		return nil
	}
	return e.First
}
