package services

import (
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Derived selectors over an already-fetched list. None of them touch storage.

func Total(list []core.Expense) decimal.Decimal {
	return core.Sum(list)
}

func ByCategory(list []core.Expense) map[string][]core.Expense {
	return core.GroupByCategory(list)
}

func ByDay(list []core.Expense) map[string][]core.Expense {
	return core.GroupByDay(list)
}

// CategoryTotals pairs each category total with its resolved category, so
// dangling references show up under the Unknown placeholder.
type CategoryTotal struct {
	Category core.Category
	Total    decimal.Decimal
	Count    int
}

func CategoryTotals(list []core.Expense, categories []core.Category) []CategoryTotal {
	totals := core.TotalsByCategory(list)
	out := make([]CategoryTotal, len(totals))
	for i, t := range totals {
		out[i] = CategoryTotal{
			Category: core.ResolveCategory(t.Category, categories),
			Total:    t.Total,
			Count:    t.Count,
		}
	}
	return out
}
