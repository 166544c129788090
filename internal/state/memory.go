package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sourceplane/liteiac/internal/model"
)

// Memory is an in-process Store, used for dry runs and tests
type Memory struct {
	mu      sync.Mutex
	outputs map[string]map[string]model.Output
	runs    map[string]*Run
	events  map[string][]Event
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		outputs: make(map[string]map[string]model.Output),
		runs:    make(map[string]*Run),
		events:  make(map[string][]Event),
	}
}

func (m *Memory) Outputs(_ context.Context, stack string) (map[string]model.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Output, len(m.outputs[stack]))
	for id, o := range m.outputs[stack] {
		out[id] = o
	}
	return out, nil
}

func (m *Memory) Record(_ context.Context, stack, nodeID string, out model.Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outputs[stack] == nil {
		m.outputs[stack] = make(map[string]model.Output)
	}
	if _, exists := m.outputs[stack][nodeID]; exists {
		return fmt.Errorf("%s/%s: %w", stack, nodeID, ErrAlreadyRecorded)
	}
	m.outputs[stack][nodeID] = out
	return nil
}

func (m *Memory) Forget(_ context.Context, stack, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outputs[stack], nodeID)
	return nil
}

func (m *Memory) StartRun(_ context.Context, stack string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.runs[id] = &Run{ID: id, Stack: stack, Status: RunRunning, StartedAt: time.Now().UTC()}
	return id, nil
}

func (m *Memory) AppendEvent(_ context.Context, runID string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("unknown run %s", runID)
	}
	m.events[runID] = append(m.events[runID], ev)
	run.Events++
	return nil
}

func (m *Memory) FinishRun(_ context.Context, runID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("unknown run %s", runID)
	}
	run.Status = status
	run.FinishedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ListRuns(_ context.Context, stack string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []Run
	for _, r := range m.runs {
		if stack == "" || r.Stack == stack {
			runs = append(runs, *r)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Events returns the recorded events of a run
func (m *Memory) Events(runID string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events[runID]...)
}

func (m *Memory) Close() error { return nil }
