package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/model"
)

// ImportNotFoundError is returned when the backend has no resource matching an import
type ImportNotFoundError struct {
	Ref model.ImportRef
	Err error
}

func (e *ImportNotFoundError) Error() string {
	return fmt.Sprintf("import %s not found: kind %s with key %q", e.Ref.ID, e.Ref.Kind, e.Ref.Key)
}

func (e *ImportNotFoundError) Unwrap() error {
	return e.Err
}

// Resolver resolves external imports through a backend and memoizes the
// result for its lifetime. Create one per apply so lookups stay
// referentially stable within a run.
type Resolver struct {
	lookuper backend.Lookuper
	log      logr.Logger

	mu      sync.Mutex
	handles map[string]model.ExternalHandle
	group   singleflight.Group
}

// New creates a resolver backed by the given lookuper
func New(lookuper backend.Lookuper, log logr.Logger) *Resolver {
	return &Resolver{
		lookuper: lookuper,
		log:      log,
		handles:  make(map[string]model.ExternalHandle),
	}
}

func cacheKey(ref model.ImportRef) string {
	return fmt.Sprintf("%s/%s", ref.Kind, ref.Key)
}

// Resolve returns the handle for ref, looking it up at most once.
// Refs with the same kind and key share a handle regardless of their id.
func (r *Resolver) Resolve(ctx context.Context, ref model.ImportRef) (model.ExternalHandle, error) {
	key := cacheKey(ref)

	r.mu.Lock()
	if h, ok := r.handles[key]; ok {
		r.mu.Unlock()
		h.Ref = ref
		return h, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		if h, ok := r.handles[key]; ok {
			r.mu.Unlock()
			return h, nil
		}
		r.mu.Unlock()

		r.log.V(1).Info("looking up import", "import", ref.ID, "kind", ref.Kind, "key", ref.Key)
		h, err := r.lookuper.Lookup(ctx, ref)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				return nil, &ImportNotFoundError{Ref: ref, Err: err}
			}
			return nil, fmt.Errorf("failed to look up import %s: %w", ref.ID, err)
		}

		r.mu.Lock()
		r.handles[key] = h
		r.mu.Unlock()
		r.log.Info("resolved import", "import", ref.ID, "handle", h.ID)
		return h, nil
	})
	if err != nil {
		return model.ExternalHandle{}, err
	}

	h := v.(model.ExternalHandle)
	h.Ref = ref
	return h, nil
}

// ResolveAll resolves refs in id order and returns their outputs keyed by
// import id. The first failure stops resolution.
func (r *Resolver) ResolveAll(ctx context.Context, refs []model.ImportRef) (map[string]model.Output, error) {
	sorted := append([]model.ImportRef(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	outputs := make(map[string]model.Output, len(sorted))
	for _, ref := range sorted {
		h, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		outputs[ref.ID] = h.Output()
	}
	return outputs, nil
}

// ImportSource lists the imports a graph or plan depends on
type ImportSource interface {
	Imports() []model.ImportRef
}

// Inject resolves every import of src so they can be treated as
// pre-satisfied nodes with no dependencies before layering
func (r *Resolver) Inject(ctx context.Context, src ImportSource) (map[string]model.Output, error) {
	return r.ResolveAll(ctx, src.Imports())
}

// Resolved returns a snapshot of the memoized handles
func (r *Resolver) Resolved() map[string]model.ExternalHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.ExternalHandle, len(r.handles))
	for k, v := range r.handles {
		out[k] = v
	}
	return out
}
