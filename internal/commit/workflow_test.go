package commit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

func seedStore(t *testing.T) (*state.Store, okr.Objective) {
	t.Helper()
	store := state.New(okr.SessionState{})
	var created okr.Objective
	store.Replace(func(prev okr.SessionState) okr.SessionState {
		prev.Objectives, created = okr.AddObjective(prev.Objectives, okr.Objective{Summary: "Grow revenue"})
		return prev
	})
	return store, created
}

func TestRequestCommitThenCancelLeavesDraft(t *testing.T) {
	store, created := seedStore(t)
	before := store.Get()

	refreshed := 0
	wf := New(store, WithRefresh(func() { refreshed++ }))

	require.NoError(t, wf.RequestCommit(created.ID))
	assert.True(t, wf.IsPending(created.ID))

	wf.Cancel(created.ID)

	assert.False(t, wf.IsPending(created.ID))
	assert.Equal(t, 1, refreshed, "cancel must still force a UI refresh")
	after := store.Get()
	assert.Equal(t, okr.StatusDraft, after.Objectives[0].Status)
	assert.Equal(t, before.LastUpdated, after.LastUpdated, "cancel must not touch session state")
}

func TestRequestCommitThenConfirmCommits(t *testing.T) {
	store, created := seedStore(t)
	wf := New(store)

	require.NoError(t, wf.RequestCommit(created.ID))
	committed, err := wf.Confirm(created.ID)

	require.NoError(t, err)
	assert.Equal(t, okr.StatusCommitted, committed.Status)
	assert.False(t, wf.IsPending(created.ID))
	assert.Equal(t, okr.StatusCommitted, store.Get().Objectives[0].Status)
}

func TestConfirmIsIdempotent(t *testing.T) {
	store, created := seedStore(t)
	wf := New(store)

	_, err := wf.Confirm(created.ID)
	require.NoError(t, err)

	notified := 0
	store.Subscribe(func(okr.SessionState) { notified++ })
	before := store.Get()

	again, err := wf.Confirm(created.ID)

	require.NoError(t, err)
	assert.Equal(t, okr.StatusCommitted, again.Status)
	assert.Len(t, store.Get().Objectives, 1)
	// the repeat confirm changes nothing, so no subscriber fires and the
	// session timestamp stays put
	assert.Equal(t, 0, notified)
	assert.Equal(t, before.LastUpdated, store.Get().LastUpdated)
}

func TestCommitMonotonicity(t *testing.T) {
	store, created := seedStore(t)
	wf := New(store)

	_, err := wf.Confirm(created.ID)
	require.NoError(t, err)

	// no operation sequence returns a committed objective to draft
	require.NoError(t, wf.RequestCommit(created.ID))
	wf.Cancel(created.ID)
	store.Replace(func(prev okr.SessionState) okr.SessionState {
		summary := "renamed"
		objectives, _, _ := okr.UpdateObjective(prev.Objectives, okr.ObjectivePatch{
			ID:      created.ID,
			Summary: &summary,
		})
		prev.Objectives = objectives
		return prev
	})

	assert.Equal(t, okr.StatusCommitted, store.Get().Objectives[0].Status)
}

func TestRequestCommitUnknownObjective(t *testing.T) {
	store, _ := seedStore(t)
	wf := New(store)

	err := wf.RequestCommit("obj-missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, wf.IsPending("obj-missing"))
}

func TestConfirmUnknownObjectiveLeavesStateUntouched(t *testing.T) {
	store, _ := seedStore(t)
	before := store.Get()
	wf := New(store)

	_, err := wf.Confirm("obj-missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, store.Get())
}
