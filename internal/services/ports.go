package services

import (
	"context"
	"time"

	"gastos/internal/core"
)

// Ports implemented by the storage repositories.
type (
	CategoryStore interface {
		SeedIfEmpty(ctx context.Context, defaults []core.NewCategory) (bool, error)
		Create(ctx context.Context, c core.NewCategory) (int64, error)
		GetAll(ctx context.Context) ([]core.Category, error)
		GetByID(ctx context.Context, id int64) (core.Category, error)
		GetByName(ctx context.Context, name string) (core.Category, error)
		Update(ctx context.Context, id int64, patch core.CategoryPatch) error
		Delete(ctx context.Context, id int64) error
		UpsertByName(ctx context.Context, items []core.NewCategory) error
		Clear(ctx context.Context) error
	}

	ExpenseStore interface {
		Create(ctx context.Context, e core.NewExpense) (int64, error)
		GetByID(ctx context.Context, id int64) (core.Expense, error)
		GetActiveByDay(ctx context.Context, day time.Time) ([]core.Expense, error)
		GetActiveByMonth(ctx context.Context, yyyyMm string) ([]core.Expense, error)
		GetActiveByRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
		GetAllActive(ctx context.Context) ([]core.Expense, error)
		GetTrashed(ctx context.Context) ([]core.Expense, error)
		Update(ctx context.Context, id int64, patch core.ExpensePatch) error
		SoftDelete(ctx context.Context, id int64) error
		Restore(ctx context.Context, id int64) error
		Purge(ctx context.Context, id int64) error
		Clear(ctx context.Context) error
		BulkInsert(ctx context.Context, items []core.NewExpense) error
	}
)
