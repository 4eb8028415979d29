package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseOn(id int64, amount string, cat string, y int, m time.Month, d int) Expense {
	return Expense{
		ID:       id,
		Amount:   decimal.RequireFromString(amount),
		Category: cat,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
}

func TestSumAndGroups(t *testing.T) {
	list := []Expense{
		expenseOn(1, "10.50", "1", 2025, 1, 1),
		expenseOn(2, "4.50", "2", 2025, 1, 1),
		expenseOn(3, "20", "1", 2025, 1, 2),
	}

	assert.Equal(t, "35", Sum(list).String())
	assert.True(t, Sum(nil).IsZero())

	byCat := GroupByCategory(list)
	assert.Len(t, byCat["1"], 2)
	assert.Len(t, byCat["2"], 1)

	byDay := GroupByDay(list)
	assert.Len(t, byDay["2025-01-01"], 2)
	assert.Len(t, byDay["2025-01-02"], 1)
}

func TestTotalsOrdering(t *testing.T) {
	list := []Expense{
		expenseOn(1, "5", "b", 2025, 1, 1),
		expenseOn(2, "30", "a", 2025, 1, 3),
		expenseOn(3, "5", "a", 2025, 1, 2),
		expenseOn(4, "5", "c", 2025, 1, 2),
	}

	cats := TotalsByCategory(list)
	require.Len(t, cats, 3)
	assert.Equal(t, "a", cats[0].Category)
	assert.Equal(t, 2, cats[0].Count)
	assert.Equal(t, "b", cats[1].Category, "ties break by category")
	assert.Equal(t, "c", cats[2].Category)

	days := TotalsByDay(list)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-01-03", days[0].Day)
	assert.Equal(t, "10", days[1].Total.String())

	s := Summarize(MonthlyPeriod(2025, time.January), list)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, "45", s.Total.String())
}

func TestAvailableMonthsSkipsTrashed(t *testing.T) {
	deleted := time.Now()
	trashed := expenseOn(9, "1", "1", 2023, 7, 1)
	trashed.DeletedAt = &deleted

	idx := AvailableMonths([]Expense{
		expenseOn(1, "1", "1", 2025, 3, 1),
		expenseOn(2, "1", "1", 2025, 1, 31),
		expenseOn(3, "1", "1", 2025, 3, 9),
		expenseOn(4, "1", "1", 2024, 12, 1),
		trashed,
	})

	assert.Equal(t, []int{2025, 2024}, idx.Years())
	assert.Equal(t, []time.Month{time.January, time.March}, idx[2025])
	assert.Equal(t, []time.Month{time.December}, idx[2024])
	assert.NotContains(t, idx, 2023)
}

func TestResolveCategory(t *testing.T) {
	cats := []Category{{ID: 1, Name: "Comida", Color: "emerald"}, {ID: 2, Name: "Casa", Color: "amber"}}

	assert.Equal(t, "Casa", ResolveCategory("2", cats).Name)
	assert.Equal(t, UnknownCategory, ResolveCategory("99", cats))
	assert.Equal(t, UnknownCategory, ResolveCategory("", cats))
}
