package blueprint

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/backend/local"
	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/model"
	"github.com/sourceplane/liteiac/internal/normalize"
	"github.com/sourceplane/liteiac/internal/planner"
	"github.com/sourceplane/liteiac/internal/runner"
	"github.com/sourceplane/liteiac/internal/state"
)

func planFor(t *testing.T, opts Options) *model.Plan {
	t.Helper()
	stack, err := GameServer(opts)
	require.NoError(t, err)

	normalized, err := normalize.NormalizeStack(stack, nil)
	require.NoError(t, err)
	expanded := expand.NewExpander(normalized).Expand()

	g, err := planner.FromStack(expanded.Stack)
	require.NoError(t, err)
	plan, err := planner.Build(g, planner.BuildOptions{Metadata: normalized.Metadata})
	require.NoError(t, err)
	return plan
}

func TestGameServer_DefaultLayers(t *testing.T) {
	plan := planFor(t, DefaultOptions())

	want := [][]string{
		{"network", "role"},
		{"cluster", "policy", "task"},
		{"server"},
		{"service"},
	}
	if diff := cmp.Diff(want, plan.LayerIDs()); diff != "" {
		t.Fatalf("layers mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, plan.Imports)

	server, ok := plan.Resource("server")
	require.True(t, ok)
	assert.Equal(t, "itzg/minecraft-server", server.Config["image"])
}

func TestGameServer_AllFeatures(t *testing.T) {
	opts := DefaultOptions()
	opts.Filesystem = true
	opts.LoadBalancer = true
	opts.Watchdog = true
	opts.Domain = "example.com"

	plan := planFor(t, opts)
	want := [][]string{
		{"network", "role"},
		{"cluster", "policy", "task"},
		{"filesystem", "server"},
		{"service"},
		{"loadbalancer", "watchdog"},
	}
	if diff := cmp.Diff(want, plan.LayerIDs()); diff != "" {
		t.Fatalf("layers mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, plan.Imports, 1)
	assert.Equal(t, model.ImportRef{ID: "zone", Kind: model.KindDnsZone, Key: "example.com"}, plan.Imports[0])

	lb, ok := plan.Resource("loadbalancer")
	require.True(t, ok)
	assert.Contains(t, lb.DependsOn, "zone")
	assert.Equal(t, "discocraftainer.example.com", lb.Config["recordName"])
}

func TestGameServer_AppliesAgainstLocalBackend(t *testing.T) {
	opts := DefaultOptions()
	opts.LoadBalancer = true
	opts.Watchdog = true
	opts.Domain = "example.com"
	plan := planFor(t, opts)

	b := local.New(local.Options{
		Stack: opts.Name,
		Zones: map[string]string{"example.com": "Z0123456789"},
	})
	result, err := runner.NewExecutor(b, state.NewMemory(), opts.Name).Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, result.Created, 9)

	created := b.Created()
	assert.Equal(t, "DiscocraftainerCluster", created["cluster"].Attributes["clusterName"])
	assert.Equal(t, b.ARN(model.KindLoadBalancer, "loadbalancer"), created["loadbalancer"].ID)
	assert.Equal(t, "Z0123456789", result.Imports["zone"].ID)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{"empty name", func(o *Options) { o.Name = "" }, "name is required"},
		{"empty image", func(o *Options) { o.Image = " " }, "image is required"},
		{"port out of range", func(o *Options) { o.Port = 70000 }, "port 70000 out of range"},
		{"unsupported cpu", func(o *Options) { o.CPU = 300 }, "unsupported task cpu 300"},
		{"memory outside cpu range", func(o *Options) { o.MemoryMiB = 512 }, "memory 512 MiB not allowed with cpu 1024"},
		{"domain without load balancer", func(o *Options) { o.Domain = "example.com" }, "requires the load balancer"},
		{"watchdog without timeout", func(o *Options) { o.Watchdog = true; o.IdleTimeoutSeconds = 0 }, "idle timeout must be positive"},
		{"no availability zones", func(o *Options) { o.MaxAzs = 0 }, "maxAzs must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = GameServer(opts)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, DefaultOptions().Validate())
}
