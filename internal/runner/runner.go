package runner

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/model"
	"github.com/sourceplane/liteiac/internal/resolver"
	"github.com/sourceplane/liteiac/internal/state"
)

// NodeState is the lifecycle state of a node within one apply
type NodeState string

const (
	Pending    NodeState = "pending"
	Dispatched NodeState = "dispatched"
	Succeeded  NodeState = "succeeded"
	Failed     NodeState = "failed"
)

// Executor applies a plan against a backend, one layer at a time.
// Nodes inside a layer are dispatched concurrently; the next layer starts
// only after every node of the current one has finished.
type Executor struct {
	Backend backend.Backend
	Store   state.Store
	Stack   string
	// Parallelism bounds concurrent creates within a layer; 0 means unbounded
	Parallelism int
	DryRun      bool
	Log         logr.Logger
	Stdout      io.Writer
}

// NewExecutor creates an executor that records outputs under the stack name
func NewExecutor(b backend.Backend, store state.Store, stack string) *Executor {
	return &Executor{
		Backend: b,
		Store:   store,
		Stack:   stack,
		Log:     logr.Discard(),
		Stdout:  io.Discard,
	}
}

// Result describes the outcome of an apply
type Result struct {
	RunID   string
	States  map[string]NodeState
	Created []string
	Skipped []string
	Outputs map[string]model.Output
	Imports map[string]model.Output
}

// Succeeded returns every node that ended in Succeeded, sorted by id
func (r *Result) Succeeded() []string {
	return r.withState(Succeeded)
}

// Failed returns every node that ended in Failed, sorted by id
func (r *Result) Failed() []string {
	return r.withState(Failed)
}

func (r *Result) withState(want NodeState) []string {
	ids := make([]string, 0)
	for id, st := range r.States {
		if st == want {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type nodeResult struct {
	output model.Output
	err    error
}

// Apply executes the plan. Nodes with a recorded output are skipped.
// Cancellation is honoured between layers only; nodes already dispatched
// run to completion.
func (e *Executor) Apply(ctx context.Context, plan *model.Plan) (*Result, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan cannot be nil")
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	log := e.Log.WithValues("stack", e.Stack)

	recorded, err := e.Store.Outputs(ctx, e.Stack)
	if err != nil {
		return nil, fmt.Errorf("failed to load recorded outputs: %w", err)
	}

	result := &Result{
		States:  make(map[string]NodeState),
		Outputs: make(map[string]model.Output),
		Imports: make(map[string]model.Output),
		Created: make([]string, 0),
		Skipped: make([]string, 0),
	}
	for _, id := range plan.NodeIDs() {
		if out, ok := recorded[id]; ok {
			result.States[id] = Succeeded
			result.Outputs[id] = out
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.States[id] = Pending
	}

	if !e.DryRun {
		runID, err := e.Store.StartRun(ctx, e.Stack)
		if err != nil {
			return nil, err
		}
		result.RunID = runID
		log = log.WithValues("run", runID)
	}

	status := state.RunFailed
	defer func() {
		if result.RunID == "" {
			return
		}
		if err := e.Store.FinishRun(context.WithoutCancel(ctx), result.RunID, status); err != nil {
			log.Error(err, "failed to finish run")
		}
	}()

	// Imports are resolved once, before any dependent node is dispatched
	if err := ctx.Err(); err != nil {
		status = state.RunCancelled
		return result, fmt.Errorf("apply cancelled before resolving imports: %w", err)
	}
	res := resolver.New(e.Backend, log)
	imports, err := res.Inject(ctx, importList(plan.Imports))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			status = state.RunCancelled
			return result, fmt.Errorf("apply cancelled while resolving imports: %w", ctxErr)
		}
		return result, err
	}
	for id, out := range imports {
		result.Imports[id] = out
	}

	index := plan.ResourceIndex()
	for _, layer := range plan.Layers {
		if err := ctx.Err(); err != nil {
			status = state.RunCancelled
			return result, fmt.Errorf("apply cancelled before layer %d: %w", layer.Index, err)
		}

		pending := make([]string, 0, len(layer.Nodes))
		for _, id := range layer.Nodes {
			if result.States[id] == Succeeded {
				e.event(ctx, result.RunID, id, "skipped", "output already recorded")
				continue
			}
			pending = append(pending, id)
		}
		if len(pending) == 0 {
			continue
		}
		fmt.Fprintf(e.Stdout, "→ Layer %d: %s\n", layer.Index, strings.Join(pending, ", "))

		if e.DryRun {
			for _, id := range pending {
				node := index[id]
				fmt.Fprintf(e.Stdout, "  + %s (%s)\n", id, node.Kind)
			}
			continue
		}

		results := make([]nodeResult, len(pending))
		var g errgroup.Group
		if e.Parallelism > 0 {
			g.SetLimit(e.Parallelism)
		}
		// in-flight creates are never aborted mid-way
		dispatchCtx := context.WithoutCancel(ctx)
		for i, id := range pending {
			node := index[id]
			result.States[id] = Dispatched
			e.event(ctx, result.RunID, id, string(Dispatched), "")
			log.V(1).Info("dispatching", "node", id, "kind", node.Kind)

			g.Go(func() error {
				out, err := e.create(dispatchCtx, node, result)
				results[i] = nodeResult{output: out, err: err}
				return nil
			})
		}
		_ = g.Wait()

		// layer barrier: every writer is done, commit outputs for the next layer
		var failures []*BackendError
		for i, id := range pending {
			r := results[i]
			if r.err != nil {
				result.States[id] = Failed
				failures = append(failures, &BackendError{NodeID: id, Err: r.err})
				e.event(ctx, result.RunID, id, string(Failed), r.err.Error())
				fmt.Fprintf(e.Stdout, "  ✗ %s: %v\n", id, r.err)
				log.Error(r.err, "create failed", "node", id)
				continue
			}
			if err := e.Store.Record(context.WithoutCancel(ctx), e.Stack, id, r.output); err != nil {
				result.States[id] = Failed
				failures = append(failures, &BackendError{NodeID: id, Err: fmt.Errorf("created %s but failed to record output: %w", r.output.ID, err)})
				log.Error(err, "failed to record output", "node", id, "resource", r.output.ID)
				continue
			}
			result.States[id] = Succeeded
			result.Outputs[id] = r.output
			result.Created = append(result.Created, id)
			e.event(ctx, result.RunID, id, string(Succeeded), r.output.ID)
			fmt.Fprintf(e.Stdout, "  ✓ %s %s\n", id, r.output.ID)
			log.Info("created", "node", id, "resource", r.output.ID)
		}

		if len(failures) > 0 {
			failed := make([]string, 0, len(failures))
			for _, f := range failures {
				failed = append(failed, f.NodeID)
			}
			return result, &PartialApplyError{
				Succeeded: result.Succeeded(),
				First:     failures[0],
				Failed:    failed,
			}
		}
	}

	status = state.RunSucceeded
	return result, nil
}

// create interpolates the node config from its dependency outputs and hands
// it to the backend. It only reads result outputs committed by earlier layers.
func (e *Executor) create(ctx context.Context, node model.ResourceNode, result *Result) (model.Output, error) {
	deps := make(map[string]model.Output, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		if out, ok := result.Outputs[dep]; ok {
			deps[dep] = out
			continue
		}
		if out, ok := result.Imports[dep]; ok {
			deps[dep] = out
			continue
		}
		return model.Output{}, fmt.Errorf("dependency %s has no output", dep)
	}

	config, err := expand.Interpolate(node.Config, deps)
	if err != nil {
		return model.Output{}, err
	}
	node.Config = config

	out, err := e.Backend.Create(ctx, node, deps)
	if err != nil {
		return model.Output{}, err
	}
	if out.ID == "" {
		return model.Output{}, fmt.Errorf("backend returned an empty identifier")
	}
	return out, nil
}

func (e *Executor) event(ctx context.Context, runID, nodeID, st, message string) {
	if runID == "" {
		return
	}
	ev := state.Event{NodeID: nodeID, State: st, Message: message, At: time.Now().UTC()}
	if err := e.Store.AppendEvent(context.WithoutCancel(ctx), runID, ev); err != nil {
		e.Log.Error(err, "failed to append run event", "node", nodeID)
	}
}

type importList []model.ImportRef

func (l importList) Imports() []model.ImportRef { return l }
