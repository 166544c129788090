package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/model"
)

func newBackend() *Backend {
	return New(Options{
		Account: "123456789012",
		Region:  "eu-west-1",
		Stack:   "discocraftainer",
		Zones:   map[string]string{"example.com": "Z0123456789"},
		Imports: map[string]string{"Role/admin": "arn:aws:iam::123456789012:role/admin"},
	})
}

func TestARN(t *testing.T) {
	b := newBackend()
	assert.Equal(t, "arn:local:ecs:eu-west-1:123456789012:cluster/discocraftainer/cluster", b.ARN(model.KindCluster, "cluster"))
	assert.Equal(t, "arn:local:ec2:eu-west-1:123456789012:vpc/discocraftainer/network", b.ARN(model.KindNetwork, "network"))

	defaults := New(Options{Stack: "s"})
	assert.Equal(t, "arn:local:iam:local-1:000000000000:role/s/task", defaults.ARN(model.KindRole, "task"))
}

func TestCreate(t *testing.T) {
	b := newBackend()
	ctx := context.Background()

	network, err := b.Create(ctx, model.NewResourceNode("network", model.KindNetwork, map[string]interface{}{"maxAzs": 2}), nil)
	require.NoError(t, err)
	assert.Equal(t, b.ARN(model.KindNetwork, "network"), network.ID)
	assert.Regexp(t, `^vpc-[0-9a-f]{17}$`, network.Attributes["vpcId"])
	assert.Equal(t, "2", network.Attributes["maxAzs"])

	again, err := newBackend().Create(ctx, model.NewResourceNode("network", model.KindNetwork, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, network.Attributes["vpcId"], again.Attributes["vpcId"], "identifiers are deterministic")

	task, err := b.Create(ctx, model.NewResourceNode("task", model.KindTask,
		map[string]interface{}{"family": "minecraft", "cpu": 1024, "memoryMiB": "2048"}),
		map[string]model.Output{"role": {ID: "r"}, "cluster": {ID: "c"}})
	require.NoError(t, err)
	assert.Equal(t, "minecraft", task.Attributes["family"])
	assert.Equal(t, "1024", task.Attributes["cpu"])
	assert.Equal(t, "2048", task.Attributes["memory"])
	assert.Equal(t, "cluster,role", task.Attributes["dependsOn"])

	role, err := b.Create(ctx, model.NewResourceNode("role", model.KindRole, map[string]interface{}{"name": "task-role"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "arn:local:iam::123456789012:role/task-role", role.Attributes["arn"])

	assert.Len(t, b.Created(), 3)
}

func TestCreate_Validation(t *testing.T) {
	b := newBackend()
	ctx := context.Background()

	_, err := b.Create(ctx, model.NewResourceNode("server", model.KindContainer, nil), nil)
	assert.EqualError(t, err, "container server requires an image")

	_, err = b.Create(ctx, model.NewResourceNode("task", model.KindTask, map[string]interface{}{"cpu": "lots"}), nil)
	assert.EqualError(t, err, `task task: cpu must be a positive integer, got "lots"`)

	_, err = b.Create(ctx, model.NewResourceNode("db", model.Kind("Database"), nil), nil)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Create(cancelled, model.NewResourceNode("network", model.KindNetwork, nil), nil)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, b.Created())
}

func TestLookup(t *testing.T) {
	b := newBackend()
	ctx := context.Background()

	zone, err := b.Lookup(ctx, model.ImportRef{ID: "zone", Kind: model.KindDnsZone, Key: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Z0123456789", zone.ID)
	assert.Equal(t, "example.com", zone.Attributes["zoneName"])

	role, err := b.Lookup(ctx, model.ImportRef{ID: "admin", Kind: model.KindRole, Key: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:role/admin", role.ID)

	_, err = b.Lookup(ctx, model.ImportRef{ID: "zone", Kind: model.KindDnsZone, Key: "missing.dev"})
	assert.ErrorIs(t, err, backend.ErrNotFound)

	_, err = b.Lookup(ctx, model.ImportRef{ID: "policy", Kind: model.KindPolicy, Key: "admin"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}
