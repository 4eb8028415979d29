package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// ExpenseRepository owns the expense lifecycle:
//
//	active -> trashed (SoftDelete) -> active (Restore)
//	active | trashed -> purged (Purge)
//
// Trashed rows stay in the same table. Period queries scan the date index
// and drop trashed rows in memory.
type ExpenseRepository struct {
	db  *DB
	loc *time.Location
	now func() time.Time
}

type ExpenseOption func(*ExpenseRepository)

// WithLocation sets the zone whose midnight dates are normalized to.
func WithLocation(loc *time.Location) ExpenseOption {
	return func(r *ExpenseRepository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) ExpenseOption {
	return func(r *ExpenseRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewExpenseRepository(db *DB, opts ...ExpenseOption) *ExpenseRepository {
	r := &ExpenseRepository{db: db, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ExpenseRepository) Location() *time.Location {
	return r.loc
}

// Create stores a new active expense and returns its id. Like every write
// here it ignores cancellation of ctx once called.
func (r *ExpenseRepository) Create(ctx context.Context, e core.NewExpense) (int64, error) {
	ctx = context.WithoutCancel(ctx)
	now := core.FormatTimestamp(r.now())
	id, err := r.db.queries.CreateExpense(ctx, CreateExpenseParams{
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        r.dateKey(e.Date),
		Description: e.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"amount", e.Amount.String(),
		"category", e.Category,
		"date", r.dateKey(e.Date))

	return id, nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.db.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Entity: "expense", ID: id}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return r.toCore(row)
}

// GetActiveByDay returns the day's active expenses, most recently entered
// first.
func (r *ExpenseRepository) GetActiveByDay(ctx context.Context, day time.Time) ([]core.Expense, error) {
	items, err := r.activeBetween(ctx, core.StartOfDay(day, r.loc), core.EndOfDay(day, r.loc))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// GetActiveByMonth takes a YYYY-MM month and returns its active expenses,
// newest date first.
func (r *ExpenseRepository) GetActiveByMonth(ctx context.Context, yyyyMm string) ([]core.Expense, error) {
	year, month, err := core.ParseMonth(yyyyMm)
	if err != nil {
		return nil, err
	}
	first, last := core.MonthBounds(year, month, r.loc)
	return r.GetActiveByRange(ctx, first, last)
}

// GetActiveByRange returns active expenses whose day lies in [start, end],
// both inclusive, newest date first.
func (r *ExpenseRepository) GetActiveByRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	items, err := r.activeBetween(ctx, core.StartOfDay(start, r.loc), core.EndOfDay(end, r.loc))
	if err != nil {
		return nil, err
	}
	sortByDateDesc(items)
	return items, nil
}

// GetAllActive returns every active expense, newest date first.
func (r *ExpenseRepository) GetAllActive(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.queries.ListActiveExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active expenses: %w", err)
	}
	return r.toCoreList(rows)
}

// GetTrashed returns trashed expenses, most recently deleted first.
func (r *ExpenseRepository) GetTrashed(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.queries.ListTrashedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trashed expenses: %w", err)
	}
	return r.toCoreList(rows)
}

// Update merges patch into the stored record and refreshes UpdatedAt.
func (r *ExpenseRepository) Update(ctx context.Context, id int64, patch core.ExpensePatch) error {
	return r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		current, err := r.load(ctx, q, id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		return q.UpdateExpense(ctx, UpdateExpenseParams{
			ID:          id,
			Amount:      next.Amount.String(),
			Category:    next.Category,
			Date:        r.dateKey(next.Date),
			Description: next.Description,
			UpdatedAt:   core.FormatTimestamp(r.now()),
		})
	})
}

// SoftDelete moves the expense to the trash. Calling it on a trashed record
// only refreshes DeletedAt.
func (r *ExpenseRepository) SoftDelete(ctx context.Context, id int64) error {
	err := r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		if _, err := r.load(ctx, q, id); err != nil {
			return err
		}
		return q.SetExpenseDeletedAt(ctx, id, core.FormatTimestamp(r.now()))
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense moved to trash", "id", id)
	return nil
}

// Restore takes the expense out of the trash, refreshing UpdatedAt. It is a
// no-op for active records.
func (r *ExpenseRepository) Restore(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		current, err := r.load(ctx, q, id)
		if err != nil {
			return err
		}
		if current.Active() {
			return nil
		}
		return q.RestoreExpense(ctx, id, core.FormatTimestamp(r.now()))
	})
}

// Purge removes the record for good, trashed or not. Ids are never reused.
func (r *ExpenseRepository) Purge(ctx context.Context, id int64) error {
	ctx = context.WithoutCancel(ctx)
	n, err := r.db.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("purge expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Expense purged", "id", id, "rows", n)
	return nil
}

// Clear drops every expense, active and trashed.
func (r *ExpenseRepository) Clear(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.db.queries.DeleteAllExpenses(ctx); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	slog.WarnContext(ctx, "All expenses cleared")
	return nil
}

// BulkInsert stores items in one transaction with fresh ids. Missing audit
// timestamps default to now.
func (r *ExpenseRepository) BulkInsert(ctx context.Context, items []core.NewExpense) error {
	now := r.now()
	err := r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		for i, e := range items {
			created, updated := e.CreatedAt, e.UpdatedAt
			if created.IsZero() {
				created = now
			}
			if updated.IsZero() {
				updated = now
			}
			if _, err := q.CreateExpense(ctx, CreateExpenseParams{
				Amount:      e.Amount.String(),
				Category:    e.Category,
				Date:        r.dateKey(e.Date),
				Description: e.Description,
				CreatedAt:   core.FormatTimestamp(created),
				UpdatedAt:   core.FormatTimestamp(updated),
			}); err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bulk insert expenses: %w", err)
	}
	slog.InfoContext(ctx, "Expenses bulk inserted", "count", len(items))
	return nil
}

func (r *ExpenseRepository) activeBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := r.db.queries.ListExpensesByDate(ctx, core.FormatTimestamp(from), core.FormatTimestamp(to))
	if err != nil {
		return nil, fmt.Errorf("list expenses by date: %w", err)
	}
	items, err := r.toCoreList(rows)
	if err != nil {
		return nil, err
	}
	active := items[:0]
	for _, e := range items {
		if e.Active() {
			active = append(active, e)
		}
	}
	return active, nil
}

func (r *ExpenseRepository) load(ctx context.Context, q *Queries, id int64) (core.Expense, error) {
	row, err := q.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Entity: "expense", ID: id}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return r.toCore(row)
}

// dateKey normalizes t to local midnight and renders the stored form.
func (r *ExpenseRepository) dateKey(t time.Time) string {
	return core.FormatTimestamp(core.StartOfDay(t, r.loc))
}

func (r *ExpenseRepository) toCore(row Expense) (core.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: amount %q: %w", row.ID, row.Amount, err)
	}
	date, err := core.ParseTimestamp(row.Date, r.loc)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", row.ID, err)
	}
	e := core.Expense{
		ID:          row.ID,
		Amount:      amount,
		Category:    row.Category,
		Date:        date,
		Description: row.Description,
	}
	if e.CreatedAt, err = r.parseOptional(row.CreatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: created_at: %w", row.ID, err)
	}
	if e.UpdatedAt, err = r.parseOptional(row.UpdatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: updated_at: %w", row.ID, err)
	}
	if row.DeletedAt.Valid {
		deleted, err := core.ParseTimestamp(row.DeletedAt.String, r.loc)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d: deleted_at: %w", row.ID, err)
		}
		e.DeletedAt = &deleted
	}
	return e, nil
}

func (r *ExpenseRepository) parseOptional(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return core.ParseTimestamp(s.String, r.loc)
}

func (r *ExpenseRepository) toCoreList(rows []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := r.toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func sortByDateDesc(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].ID > items[j].ID
	})
}
