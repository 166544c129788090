package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/model"
)

const stackYAML = `apiVersion: liteiac.sourceplane.io/v1
kind: Stack
metadata:
  name: discocraftainer
features:
  watchdog: true
imports:
  - id: zone
    kind: DnsZone
    key: example.com
resources:
  - id: network
    kind: Network
    config:
      maxAzs: 3
  - id: cluster
    kind: Cluster
    config:
      vpc: ${network.vpcId}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStack(t *testing.T) {
	stack, err := LoadStack(writeFile(t, "stack.yaml", stackYAML))
	require.NoError(t, err)

	assert.Equal(t, "discocraftainer", stack.Metadata.Name)
	assert.True(t, stack.Features["watchdog"])
	require.Len(t, stack.Imports, 1)
	assert.Equal(t, model.KindDnsZone, stack.Imports[0].Kind)
	require.Len(t, stack.Resources, 2)
	assert.Equal(t, 3, stack.Resources[0].Config["maxAzs"])
	assert.Equal(t, "${network.vpcId}", stack.Resources[1].Config["vpc"])
}

func TestParseStack_RejectsUnknownFields(t *testing.T) {
	_, err := ParseStack([]byte(`metadata:
  name: x
resources:
  - id: network
    kind: Network
    depends_on: [cluster]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends_on")
}

func TestLoadStack_MissingFile(t *testing.T) {
	_, err := LoadStack(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteStackRoundTrip(t *testing.T) {
	stack, err := ParseStack([]byte(stackYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteStack(stack, path))

	again, err := LoadStack(path)
	require.NoError(t, err)
	assert.Equal(t, stack, again)
}

func TestLoadDocument(t *testing.T) {
	doc, err := LoadDocument(writeFile(t, "stack.yaml", stackYAML))
	require.NoError(t, err)

	m, ok := doc.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Stack", m["kind"])
}

func TestLoadPlan(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		plan, err := LoadPlan(writeFile(t, "plan.json", `{
  "apiVersion": "liteiac.sourceplane.io/v1",
  "kind": "Plan",
  "metadata": {"name": "discocraftainer"},
  "layers": [{"index": 0, "nodes": ["network"]}],
  "resources": [{"id": "network", "kind": "Network"}]
}`))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"network"}}, plan.LayerIDs())
	})

	t.Run("yaml", func(t *testing.T) {
		plan, err := LoadPlan(writeFile(t, "plan.yaml", `kind: Plan
metadata:
  name: discocraftainer
layers:
  - index: 0
    nodes: [network]
resources:
  - id: network
    kind: Network
`))
		require.NoError(t, err)
		assert.Equal(t, "discocraftainer", plan.Metadata.Name)
	})

	t.Run("layer names a missing resource", func(t *testing.T) {
		_, err := LoadPlan(writeFile(t, "plan.yaml", `kind: Plan
metadata:
  name: discocraftainer
layers:
  - index: 0
    nodes: [network, zz]
resources:
  - id: network
    kind: Network
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "plan layer 0 references unknown resource zz")
	})

	t.Run("not a plan", func(t *testing.T) {
		_, err := LoadPlan(writeFile(t, "stack.yaml", stackYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `is not a plan (kind "Stack")`)
	})
}
