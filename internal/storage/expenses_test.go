package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func newExpenseRepo(t *testing.T) (*ExpenseRepository, *stepClock) {
	t.Helper()
	clock := newStepClock()
	return NewExpenseRepository(openTestDB(t), WithLocation(time.UTC), WithClock(clock.Now)), clock
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newExpense(amount string, date time.Time) core.NewExpense {
	return core.NewExpense{
		Amount:   decimal.RequireFromString(amount),
		Category: "1",
		Date:     date,
	}
}

func ids(items []core.Expense) []int64 {
	out := make([]int64, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func TestExpenseCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	// Time of day is dropped: dates are stored as local midnight.
	id, err := repo.Create(ctx, core.NewExpense{
		Amount:      decimal.RequireFromString("12.34"),
		Category:    "3",
		Date:        time.Date(2025, 3, 10, 18, 45, 0, 0, time.UTC),
		Description: "cena",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, "3", got.Category)
	assert.True(t, got.Date.Equal(day(2025, 3, 10)))
	assert.Equal(t, "cena", got.Description)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
	assert.True(t, got.Active())

	_, err = repo.GetByID(ctx, id+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExpenseRangeCorrectness(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	var created []int64
	for _, d := range []time.Time{day(2025, 1, 1), day(2025, 1, 15), day(2025, 1, 31), day(2025, 2, 1)} {
		id, err := repo.Create(ctx, newExpense("10", d))
		require.NoError(t, err)
		created = append(created, id)
	}

	jan, err := repo.GetActiveByMonth(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{created[2], created[1], created[0]}, ids(jan))

	mid, err := repo.GetActiveByRange(ctx, day(2025, 1, 10), day(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, []int64{created[1]}, ids(mid))

	feb, err := repo.GetActiveByMonth(ctx, "2025-02")
	require.NoError(t, err)
	assert.Equal(t, []int64{created[3]}, ids(feb))

	_, err = repo.GetActiveByMonth(ctx, "2025-13")
	assert.Error(t, err)
}

func TestExpenseMonthUsesCalendarLastDay(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	leap, err := repo.Create(ctx, newExpense("1", day(2024, 2, 29)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newExpense("1", day(2024, 3, 1)))
	require.NoError(t, err)

	feb, err := repo.GetActiveByMonth(ctx, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, []int64{leap}, ids(feb))
}

func TestExpenseByDayOrdersByEntry(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	first, err := repo.Create(ctx, newExpense("1", day(2025, 5, 4)))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newExpense("2", day(2025, 5, 4)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newExpense("3", day(2025, 5, 5)))
	require.NoError(t, err)

	items, err := repo.GetActiveByDay(ctx, time.Date(2025, 5, 4, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int64{second, first}, ids(items))
}

func TestExpenseSoftDeleteRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	id, err := repo.Create(ctx, newExpense("25", day(2025, 4, 2)))
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, id))
	trashed, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, trashed.DeletedAt)
	assert.True(t, trashed.UpdatedAt.Equal(before.UpdatedAt), "trashing leaves updatedAt alone")

	require.NoError(t, repo.Restore(ctx, id))
	after, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Nil(t, after.DeletedAt)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.Amount.Equal(before.Amount))
	assert.True(t, after.Date.Equal(before.Date))
	assert.Equal(t, before.Category, after.Category)

	// Restoring an active record changes nothing.
	require.NoError(t, repo.Restore(ctx, id))
	again, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.Equal(after.UpdatedAt))

	assert.ErrorIs(t, repo.SoftDelete(ctx, id+50), core.ErrNotFound)
	assert.ErrorIs(t, repo.Restore(ctx, id+50), core.ErrNotFound)
}

func TestExpenseSoftDeleteTwiceRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	id, err := repo.Create(ctx, newExpense("5", day(2025, 4, 2)))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, id))
	first, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, id))
	second, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NotNil(t, second.DeletedAt)
	assert.True(t, second.DeletedAt.After(*first.DeletedAt))
}

func TestExpenseActiveQueriesExcludeTrash(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	keep, err := repo.Create(ctx, newExpense("10", day(2025, 1, 10)))
	require.NoError(t, err)
	gone1, err := repo.Create(ctx, newExpense("20", day(2025, 1, 10)))
	require.NoError(t, err)
	gone2, err := repo.Create(ctx, newExpense("30", day(2025, 1, 12)))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, gone1))
	require.NoError(t, repo.SoftDelete(ctx, gone2))

	byDay, err := repo.GetActiveByDay(ctx, day(2025, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{keep}, ids(byDay))

	byMonth, err := repo.GetActiveByMonth(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{keep}, ids(byMonth))
	assert.Equal(t, "10", core.Sum(byMonth).String())

	all, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{keep}, ids(all))

	trash, err := repo.GetTrashed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{gone2, gone1}, ids(trash), "most recently deleted first")
}

func TestExpenseUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	id, err := repo.Create(ctx, newExpense("10", day(2025, 1, 10)))
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	amount := decimal.RequireFromString("99.90")
	moved := day(2025, 2, 3)
	require.NoError(t, repo.Update(ctx, id, core.ExpensePatch{Amount: &amount, Date: &moved}))

	after, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, after.Amount.Equal(amount))
	assert.True(t, after.Date.Equal(moved))
	assert.Equal(t, before.Category, after.Category)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	err = repo.Update(ctx, id+1, core.ExpensePatch{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExpensePurgeIsIrreversible(t *testing.T) {
	ctx := context.Background()
	repo, _ := newExpenseRepo(t)

	active, err := repo.Create(ctx, newExpense("1", day(2025, 1, 1)))
	require.NoError(t, err)
	trashed, err := repo.Create(ctx, newExpense("2", day(2025, 1, 1)))
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, trashed))

	require.NoError(t, repo.Purge(ctx, active))
	require.NoError(t, repo.Purge(ctx, trashed))

	_, err = repo.GetByID(ctx, active)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetByID(ctx, trashed)
	assert.ErrorIs(t, err, core.ErrNotFound)

	trash, err := repo.GetTrashed(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)

	next, err := repo.Create(ctx, newExpense("3", day(2025, 1, 1)))
	require.NoError(t, err)
	assert.Greater(t, next, trashed, "purged ids are never reused")
}

func TestExpenseBulkInsert(t *testing.T) {
	ctx := context.Background()
	repo, clock := newExpenseRepo(t)

	existing, err := repo.Create(ctx, newExpense("1", day(2025, 1, 1)))
	require.NoError(t, err)

	stamped := time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC)
	items := []core.NewExpense{
		{Amount: decimal.RequireFromString("5"), Category: "1", Date: day(2025, 1, 2), CreatedAt: stamped, UpdatedAt: stamped},
		{Amount: decimal.RequireFromString("6"), Category: "2", Date: day(2025, 1, 3)},
	}
	require.NoError(t, repo.BulkInsert(ctx, items))

	all, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, e := range all {
		if e.ID != existing {
			assert.Greater(t, e.ID, existing)
		}
	}

	// Newest date first: the un-stamped item gets the clock, the stamped one
	// keeps its timestamps.
	assert.True(t, all[0].CreatedAt.After(stamped))
	assert.True(t, all[0].CreatedAt.Before(clock.Now()))
	assert.True(t, all[1].CreatedAt.Equal(stamped))
	assert.True(t, all[1].UpdatedAt.Equal(stamped))

	require.NoError(t, repo.Clear(ctx))
	all, err = repo.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestExpenseLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cats := NewCategoryRepository(db)
	expenses := NewExpenseRepository(db, WithLocation(time.UTC))

	catID, err := cats.Create(ctx, core.NewCategory{Name: "Comida", Color: "emerald"})
	require.NoError(t, err)

	fecha, err := core.ParseTimestamp("2025-03-10T00:00:00.000Z", time.UTC)
	require.NoError(t, err)
	id, err := expenses.Create(ctx, core.NewExpense{
		Amount:   decimal.NewFromInt(50),
		Category: core.CategoryRef(catID),
		Date:     fecha,
	})
	require.NoError(t, err)

	month, err := expenses.GetActiveByMonth(ctx, "2025-03")
	require.NoError(t, err)
	require.Len(t, month, 1)
	assert.True(t, month[0].Amount.Equal(decimal.NewFromInt(50)))

	require.NoError(t, expenses.SoftDelete(ctx, id))
	month, err = expenses.GetActiveByMonth(ctx, "2025-03")
	require.NoError(t, err)
	assert.Empty(t, month)
	trash, err := expenses.GetTrashed(ctx)
	require.NoError(t, err)
	assert.Len(t, trash, 1)

	require.NoError(t, expenses.Restore(ctx, id))
	month, err = expenses.GetActiveByMonth(ctx, "2025-03")
	require.NoError(t, err)
	assert.Len(t, month, 1)
}

func TestWritesIgnoreCancellation(t *testing.T) {
	db := openTestDB(t)
	expenses := NewExpenseRepository(db, WithLocation(time.UTC), WithClock(newStepClock().Now))
	categories := NewCategoryRepository(db)

	id, err := expenses.Create(context.Background(), newExpense("5", day(2025, 3, 10)))
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	amount := decimal.RequireFromString("9")
	require.NoError(t, expenses.Update(cancelled, id, core.ExpensePatch{Amount: &amount}))
	got, err := expenses.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(amount))

	require.NoError(t, expenses.SoftDelete(cancelled, id))
	require.NoError(t, expenses.Restore(cancelled, id))
	require.NoError(t, expenses.BulkInsert(cancelled, []core.NewExpense{
		newExpense("1", day(2025, 3, 11)),
		newExpense("2", day(2025, 3, 12)),
	}))

	second, err := expenses.Create(cancelled, newExpense("3", day(2025, 3, 13)))
	require.NoError(t, err)
	require.NoError(t, expenses.Purge(cancelled, second))

	active, err := expenses.GetAllActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 3)

	catID, err := categories.Create(cancelled, core.NewCategory{Name: "Ocio", Color: "indigo"})
	require.NoError(t, err)
	name := "Cine"
	require.NoError(t, categories.Update(cancelled, catID, core.CategoryPatch{Name: &name}))
	require.NoError(t, categories.UpsertByName(cancelled, []core.NewCategory{{Name: "Cine", Color: "rose"}}))
	c, err := categories.GetByID(context.Background(), catID)
	require.NoError(t, err)
	assert.Equal(t, core.Category{ID: catID, Name: "Cine", Color: "rose"}, c)

	require.NoError(t, expenses.Clear(cancelled))
	require.NoError(t, categories.Clear(cancelled))
}
