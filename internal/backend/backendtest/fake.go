// Package backendtest provides a recording backend for tests
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/model"
)

// Fake records every call and fails the node ids listed in Fail
type Fake struct {
	// Fail maps a node id to the error Create returns for it
	Fail map[string]error
	// Handles maps "Kind/key" to the handle returned by Lookup
	Handles map[string]model.ExternalHandle
	// Hook, when set, runs inside Create before the output is produced
	Hook func(ctx context.Context, node model.ResourceNode)

	mu      sync.Mutex
	creates []model.ResourceNode
	deps    map[string]map[string]model.Output
	lookups atomic.Int64

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

var _ backend.Backend = (*Fake)(nil)

// New returns an empty fake
func New() *Fake {
	return &Fake{
		Fail:    make(map[string]error),
		Handles: make(map[string]model.ExternalHandle),
		deps:    make(map[string]map[string]model.Output),
	}
}

// WithHandle registers an import target
func (f *Fake) WithHandle(kind model.Kind, key, id string) *Fake {
	f.Handles[fmt.Sprintf("%s/%s", kind, key)] = model.ExternalHandle{ID: id}
	return f
}

func (f *Fake) Create(ctx context.Context, node model.ResourceNode, deps map[string]model.Output) (model.Output, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.Hook != nil {
		f.Hook(ctx, node)
	}

	f.mu.Lock()
	f.creates = append(f.creates, node)
	f.deps[node.ID] = deps
	f.mu.Unlock()

	if err, ok := f.Fail[node.ID]; ok {
		return model.Output{}, err
	}
	return model.Output{
		ID:         "fake:" + node.ID,
		Attributes: map[string]string{"kind": string(node.Kind)},
	}, nil
}

func (f *Fake) Lookup(_ context.Context, ref model.ImportRef) (model.ExternalHandle, error) {
	f.lookups.Add(1)
	h, ok := f.Handles[fmt.Sprintf("%s/%s", ref.Kind, ref.Key)]
	if !ok {
		return model.ExternalHandle{}, backend.ErrNotFound
	}
	h.Ref = ref
	return h, nil
}

// Created returns the created node ids in ascending order
func (f *Fake) Created() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.creates))
	for _, n := range f.creates {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

// Node returns the node as it was passed to Create
func (f *Fake) Node(id string) (model.ResourceNode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.creates {
		if n.ID == id {
			return n, true
		}
	}
	return model.ResourceNode{}, false
}

// Deps returns the dependency outputs passed when creating id
func (f *Fake) Deps(id string) map[string]model.Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deps[id]
}

// Lookups is the number of Lookup calls
func (f *Fake) Lookups() int {
	return int(f.lookups.Load())
}

// MaxInFlight is the highest number of concurrent Create calls observed
func (f *Fake) MaxInFlight() int {
	return int(f.maxInFlight.Load())
}
