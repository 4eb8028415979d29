package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func categoryKey(c core.Category) int64 { return c.ID }

func names(items []core.Category) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.Name
	}
	return out
}

func TestPendingCommit(t *testing.T) {
	view := NewView(categoryKey, []core.Category{{ID: 1, Name: "a"}})

	p := Begin(view, func(v *View[core.Category]) func() {
		return v.prepend(core.Category{ID: -1, Name: "tmp"})
	})
	assert.Equal(t, StatePending, p.State())
	assert.Equal(t, []string{"tmp", "a"}, names(view.Items()))

	require.NoError(t, p.Commit(func(v *View[core.Category]) {
		v.swap(-1, func(c core.Category) core.Category { c.ID = 9; return c })
	}))
	assert.Equal(t, StateCommitted, p.State())

	got, ok := view.Get(9)
	require.True(t, ok)
	assert.Equal(t, "tmp", got.Name)

	assert.ErrorIs(t, p.Commit(nil), ErrSettled)
	assert.ErrorIs(t, p.Rollback(), ErrSettled)
	assert.Equal(t, 2, view.Len(), "a settled write cannot be reverted")
}

func TestPendingRollbackRestoresSnapshot(t *testing.T) {
	view := NewView(categoryKey, []core.Category{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b"},
		{ID: 3, Name: "c"},
	})

	take := Begin(view, func(v *View[core.Category]) func() { return v.take(2) })
	assert.Equal(t, []string{"a", "c"}, names(view.Items()))
	require.NoError(t, take.Rollback())
	assert.Equal(t, []string{"a", "b", "c"}, names(view.Items()), "reinserted at its old position")
	assert.Equal(t, StateRolledBack, take.State())

	renamed := "z"
	swap := Begin(view, func(v *View[core.Category]) func() {
		return v.swap(3, core.CategoryPatch{Name: &renamed}.Apply)
	})
	assert.Equal(t, []string{"a", "b", "z"}, names(view.Items()))
	require.NoError(t, swap.Rollback())
	assert.Equal(t, []string{"a", "b", "c"}, names(view.Items()))

	wipe := Begin(view, func(v *View[core.Category]) func() { return v.empty() })
	assert.Zero(t, view.Len())
	require.NoError(t, wipe.Rollback())
	assert.Equal(t, 3, view.Len())
}

func TestPendingWithoutView(t *testing.T) {
	called := false
	p := Begin[core.Category](nil, func(*View[core.Category]) func() {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.NoError(t, p.Rollback())
}

func TestViewMissingIDIsNoop(t *testing.T) {
	view := NewView(categoryKey, []core.Category{{ID: 1, Name: "a"}})

	revert := view.swap(42, func(c core.Category) core.Category { c.Name = "x"; return c })
	revert()
	view.take(42)()
	assert.Equal(t, []string{"a"}, names(view.Items()))
}

func TestViewItemsIsACopy(t *testing.T) {
	source := []core.Category{{ID: 1, Name: "a"}}
	view := NewView(categoryKey, source)
	source[0].Name = "changed"

	items := view.Items()
	items[0].Name = "also changed"
	assert.Equal(t, []string{"a"}, names(view.Items()))

	view.Replace([]core.Category{{ID: 5, Name: "fresh"}})
	assert.Equal(t, []string{"fresh"}, names(view.Items()))
}

func TestPlaceholderIDsAreNegativeAndUnique(t *testing.T) {
	a, b := nextPlaceholderID(), nextPlaceholderID()
	assert.Negative(t, a)
	assert.Negative(t, b)
	assert.NotEqual(t, a, b)
}
