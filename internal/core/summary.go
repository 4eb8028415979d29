package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount is a total aggregated by category reference.
type CategoryAmount struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// DayAmount is a total aggregated by day (YYYY-MM-DD).
type DayAmount struct {
	Day   string
	Total decimal.Decimal
}

// Summary is a compact view of one period.
type Summary struct {
	Period     Period
	Total      decimal.Decimal
	Count      int
	ByCategory []CategoryAmount
	ByDay      []DayAmount
}

// MonthIndex maps a year to the months that have at least one expense.
type MonthIndex map[int][]time.Month

// Sum adds up the amounts of an already-fetched list.
func Sum(list []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total
}

func GroupByCategory(list []Expense) map[string][]Expense {
	out := make(map[string][]Expense)
	for _, e := range list {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}

// GroupByDay keys by the expense date in its own location.
func GroupByDay(list []Expense) map[string][]Expense {
	out := make(map[string][]Expense)
	for _, e := range list {
		k := e.Date.Format(DateLayout)
		out[k] = append(out[k], e)
	}
	return out
}

// TotalsByCategory returns per-category totals, largest first.
func TotalsByCategory(list []Expense) []CategoryAmount {
	groups := GroupByCategory(list)
	out := make([]CategoryAmount, 0, len(groups))
	for cat, items := range groups {
		out = append(out, CategoryAmount{Category: cat, Total: Sum(items), Count: len(items)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TotalsByDay returns per-day totals, most recent day first.
func TotalsByDay(list []Expense) []DayAmount {
	groups := GroupByDay(list)
	out := make([]DayAmount, 0, len(groups))
	for day, items := range groups {
		out = append(out, DayAmount{Day: day, Total: Sum(items)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// Summarize aggregates a list already restricted to p.
func Summarize(p Period, list []Expense) Summary {
	return Summary{
		Period:     p,
		Total:      Sum(list),
		Count:      len(list),
		ByCategory: TotalsByCategory(list),
		ByDay:      TotalsByDay(list),
	}
}

// AvailableMonths builds the year/month index. Callers pass every active
// expense, not just the selected period, so period pickers see all months
// that hold data.
func AvailableMonths(list []Expense) MonthIndex {
	seen := make(map[int]map[time.Month]struct{})
	for _, e := range list {
		if !e.Active() {
			continue
		}
		y, m := e.Date.Year(), e.Date.Month()
		if seen[y] == nil {
			seen[y] = make(map[time.Month]struct{})
		}
		seen[y][m] = struct{}{}
	}
	idx := make(MonthIndex, len(seen))
	for y, months := range seen {
		for m := range months {
			idx[y] = append(idx[y], m)
		}
		sort.Slice(idx[y], func(i, j int) bool { return idx[y][i] < idx[y][j] })
	}
	return idx
}

// Years returns the indexed years, most recent first.
func (idx MonthIndex) Years() []int {
	years := make([]int, 0, len(idx))
	for y := range idx {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// ResolveCategory looks up a soft reference, defaulting to UnknownCategory.
func ResolveCategory(ref string, categories []Category) Category {
	for _, c := range categories {
		if ref != "" && CategoryRef(c.ID) == ref {
			return c
		}
	}
	return UnknownCategory
}
