package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := newTestStore(t)

	run := &types.RunRecord{
		ID:        "run-1",
		Identity:  types.WorkerIdentity{Project: "p", Zone: "z", Instance: "i"},
		StartedAt: time.Now().UTC(),
		State:     types.StateInitializing,
	}
	require.NoError(t, store.CreateRun(run))

	run.State = types.StateCompleted
	run.FinishedAt = time.Now().UTC()
	require.NoError(t, store.UpdateRun(run))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateCompleted, got.State)
	assert.Equal(t, "i", got.Identity.Instance)

	_, err = store.GetRun("nope")
	assert.Error(t, err)
}

func TestTransitionsOrdered(t *testing.T) {
	store := newTestStore(t)

	states := []types.LifecycleState{
		types.StateWaitingReadiness,
		types.StateResolvingConfig,
		types.StateRunning,
		types.StateCompleted,
		types.StateTerminating,
	}
	from := types.StateInitializing
	for i, to := range states {
		require.NoError(t, store.AppendTransition(&types.TransitionRecord{
			RunID: "run-1", Seq: i, From: from, To: to, At: time.Now(),
		}))
		from = to
	}

	// A second run's transitions must not bleed in.
	require.NoError(t, store.AppendTransition(&types.TransitionRecord{
		RunID: "run-2", Seq: 0, From: types.StateInitializing, To: types.StateTerminating,
	}))

	trs, err := store.ListTransitions("run-1")
	require.NoError(t, err)
	require.Len(t, trs, len(states))
	for i, tr := range trs {
		assert.Equal(t, i, tr.Seq)
		assert.Equal(t, states[i], tr.To)
	}
}

func TestStagesOrdered(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendStage(&types.StageRecord{RunID: "r", Index: 0, Name: "inference", Succeeded: true}))
	require.NoError(t, store.AppendStage(&types.StageRecord{RunID: "r", Index: 1, Name: "upload", Succeeded: false, Error: "exit 1"}))

	stages, err := store.ListStages("r")
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "inference", stages[0].Name)
	assert.False(t, stages[1].Succeeded)

	empty, err := store.ListStages("unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateRun(&types.RunRecord{ID: "a"}))
	require.NoError(t, store.CreateRun(&types.RunRecord{ID: "b"}))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
