// Package state records resource outputs and apply history so a later apply
// can skip what already exists and resume after a partial failure.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/sourceplane/liteiac/internal/model"
)

// ErrAlreadyRecorded is returned when an output is recorded twice for one node
var ErrAlreadyRecorded = errors.New("output already recorded")

// Run statuses
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Store persists outputs per stack and the history of apply runs
type Store interface {
	// Outputs returns every recorded output for the stack keyed by node id
	Outputs(ctx context.Context, stack string) (map[string]model.Output, error)
	// Record stores the output of a created node. Outputs are write-once.
	Record(ctx context.Context, stack, nodeID string, out model.Output) error
	// Forget drops a recorded output so the node is created again
	Forget(ctx context.Context, stack, nodeID string) error

	StartRun(ctx context.Context, stack string) (string, error)
	AppendEvent(ctx context.Context, runID string, ev Event) error
	FinishRun(ctx context.Context, runID, status string) error
	ListRuns(ctx context.Context, stack string, limit int) ([]Run, error)

	Close() error
}

// Event is a node state transition within a run
type Event struct {
	NodeID  string    `json:"nodeId"`
	State   string    `json:"state"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Run summarizes one apply invocation
type Run struct {
	ID         string    `json:"id"`
	Stack      string    `json:"stack"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Events     int       `json:"events"`
}
