package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/liteiac/internal/model"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_Outputs(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			network := model.Output{ID: "arn:vpc/network", Attributes: map[string]string{"vpcId": "vpc-1"}}

			require.NoError(t, store.Record(ctx, "discocraftainer", "network", network))
			require.NoError(t, store.Record(ctx, "discocraftainer", "role", model.Output{ID: "arn:role/task"}))
			require.NoError(t, store.Record(ctx, "other", "network", model.Output{ID: "arn:vpc/other"}))

			outputs, err := store.Outputs(ctx, "discocraftainer")
			require.NoError(t, err)
			assert.Len(t, outputs, 2)
			assert.Equal(t, network, outputs["network"])
			assert.Equal(t, "arn:role/task", outputs["role"].ID)

			err = store.Record(ctx, "discocraftainer", "network", model.Output{ID: "arn:vpc/again"})
			assert.ErrorIs(t, err, ErrAlreadyRecorded)

			outputs, err = store.Outputs(ctx, "discocraftainer")
			require.NoError(t, err)
			assert.Equal(t, "arn:vpc/network", outputs["network"].ID, "outputs are write-once")

			require.NoError(t, store.Forget(ctx, "discocraftainer", "network"))
			outputs, err = store.Outputs(ctx, "discocraftainer")
			require.NoError(t, err)
			assert.NotContains(t, outputs, "network")
			require.NoError(t, store.Record(ctx, "discocraftainer", "network", model.Output{ID: "arn:vpc/again"}))

			empty, err := store.Outputs(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_Runs(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := store.StartRun(ctx, "discocraftainer")
			require.NoError(t, err)
			require.NoError(t, store.AppendEvent(ctx, first, Event{NodeID: "network", State: "dispatched", At: time.Now()}))
			require.NoError(t, store.AppendEvent(ctx, first, Event{NodeID: "network", State: "succeeded"}))
			require.NoError(t, store.FinishRun(ctx, first, RunSucceeded))

			time.Sleep(2 * time.Millisecond)
			second, err := store.StartRun(ctx, "discocraftainer")
			require.NoError(t, err)
			_, err = store.StartRun(ctx, "other")
			require.NoError(t, err)

			runs, err := store.ListRuns(ctx, "discocraftainer", 0)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, second, runs[0].ID)
			assert.Equal(t, RunRunning, runs[0].Status)
			assert.True(t, runs[0].FinishedAt.IsZero())

			assert.Equal(t, first, runs[1].ID)
			assert.Equal(t, RunSucceeded, runs[1].Status)
			assert.Equal(t, 2, runs[1].Events)
			assert.False(t, runs[1].FinishedAt.IsZero())

			limited, err := store.ListRuns(ctx, "", 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			all, err := store.ListRuns(ctx, "", 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			assert.Error(t, store.FinishRun(ctx, "no-such-run", RunFailed))
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, "discocraftainer", "cluster", model.Output{ID: "arn:cluster/game"}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	outputs, err := reopened.Outputs(ctx, "discocraftainer")
	require.NoError(t, err)
	assert.Equal(t, model.Output{ID: "arn:cluster/game"}, outputs["cluster"])
	assert.Equal(t, path, reopened.Path())
}
