package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/log"
)

const entityExpense = "expense"

// ExpenseService is the façade over the expense store. Period reads are
// cached; the cache is dropped on every expenses-changed event, whoever
// published it.
type ExpenseService struct {
	store       ExpenseStore
	bus         *events.Bus
	cache       cache.Cache[[]core.Expense]
	loc         *time.Location
	logger      *log.Logger
	now         func() time.Time
	unsubscribe func()
}

type ExpenseOption func(*ExpenseService)

func WithCache(c cache.Cache[[]core.Expense]) ExpenseOption {
	return func(s *ExpenseService) { s.cache = c }
}

// WithLocation sets the zone used to resolve days, months and periods.
func WithLocation(loc *time.Location) ExpenseOption {
	return func(s *ExpenseService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithExpenseLogger(logger *log.Logger) ExpenseOption {
	return func(s *ExpenseService) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentExpense)
		}
	}
}

func NewExpenseService(store ExpenseStore, bus *events.Bus, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		store:  store,
		bus:    bus,
		loc:    time.Local,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentExpense),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && s.bus != nil {
		s.unsubscribe = s.bus.Subscribe(events.ExpensesChanged, func(ctx context.Context, e events.Event) {
			s.cache.Clear()
			s.logger.DebugContext(ctx, "Period cache invalidated", log.FieldEvent, e.String())
		})
	}
	return s
}

// Close detaches the cache invalidation hook.
func (s *ExpenseService) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

func (s *ExpenseService) Location() *time.Location {
	return s.loc
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return core.Expense{}, opError(log.OpRead, entityExpense, id, err)
	}
	return e, nil
}

// Day returns the day's active expenses, most recently entered first.
func (s *ExpenseService) Day(ctx context.Context, day time.Time) ([]core.Expense, error) {
	key := "day:" + core.StartOfDay(day, s.loc).Format(core.DateLayout)
	return s.cached(ctx, key, func() ([]core.Expense, error) {
		return s.store.GetActiveByDay(ctx, day)
	})
}

// Month takes YYYY-MM and returns the month's active expenses, newest first.
func (s *ExpenseService) Month(ctx context.Context, yyyyMm string) ([]core.Expense, error) {
	year, month, err := core.ParseMonth(yyyyMm)
	if err != nil {
		return nil, opError(log.OpRead, entityExpense, 0, err)
	}
	return s.ForPeriod(ctx, core.MonthlyPeriod(year, month))
}

// Range returns active expenses in [start, end] by day, newest first.
func (s *ExpenseService) Range(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	return s.ForPeriod(ctx, core.CustomPeriod(start, end))
}

// ForPeriod resolves p to its days and returns the active expenses inside.
func (s *ExpenseService) ForPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	first, last, err := p.Days(s.loc)
	if err != nil {
		return nil, opError(log.OpRead, entityExpense, 0, err)
	}
	key := "period:" + p.Key()
	return s.cached(ctx, key, func() ([]core.Expense, error) {
		if p.Kind == core.Monthly {
			return s.store.GetActiveByMonth(ctx, fmt.Sprintf("%04d-%02d", p.Year, p.Month))
		}
		return s.store.GetActiveByRange(ctx, first, last)
	})
}

// Summary aggregates the active expenses of p.
func (s *ExpenseService) Summary(ctx context.Context, p core.Period) (core.Summary, error) {
	items, err := s.ForPeriod(ctx, p)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(p, items), nil
}

// AvailableMonths indexes every month holding active data, regardless of any
// selected period.
func (s *ExpenseService) AvailableMonths(ctx context.Context) (core.MonthIndex, error) {
	items, err := s.store.GetAllActive(ctx)
	if err != nil {
		return nil, opError(log.OpRead, entityExpense, 0, err)
	}
	return core.AvailableMonths(items), nil
}

// Trash returns trashed expenses, most recently deleted first.
func (s *ExpenseService) Trash(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.GetTrashed(ctx)
	if err != nil {
		return nil, opError(log.OpRead, entityExpense, 0, err)
	}
	return items, nil
}

// Create validates and stores in. view shows a provisional record under a
// negative id until the store answers. view may be nil.
func (s *ExpenseService) Create(ctx context.Context, view *View[core.Expense], in core.NewExpense) (int64, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return 0, opError(log.OpCreate, entityExpense, 0, err)
	}
	in.Date = core.StartOfDay(in.Date, s.loc)

	now := s.now()
	placeholder := core.Expense{
		ID:          nextPlaceholderID(),
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p := Begin(view, func(v *View[core.Expense]) func() { return v.prepend(placeholder) })

	id, err := s.store.Create(ctx, in)
	if err != nil {
		_ = p.Rollback()
		s.logger.LogError(ctx, "Expense create failed", err, log.OpCreate, log.NewFields().WithExpense(0, in))
		return 0, opError(log.OpCreate, entityExpense, 0, err)
	}

	stored, getErr := s.store.GetByID(ctx, id)
	_ = p.Commit(func(v *View[core.Expense]) {
		v.swap(placeholder.ID, func(e core.Expense) core.Expense {
			if getErr == nil {
				return stored
			}
			e.ID = id
			return e
		})
	})

	s.logger.InfoContext(ctx, "Expense created", log.NewFields().WithExpense(id, in).ToSlice()...)
	s.publish(ctx, events.ActionCreate, id)
	return id, nil
}

// Update validates and applies patch. view is patched at once and restored
// if the store rejects the write.
func (s *ExpenseService) Update(ctx context.Context, view *View[core.Expense], id int64, patch core.ExpensePatch) error {
	if err := patch.Validate(); err != nil {
		return opError(log.OpUpdate, entityExpense, id, err)
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	if patch.Date != nil {
		d := core.StartOfDay(*patch.Date, s.loc)
		patch.Date = &d
	}

	p := Begin(view, func(v *View[core.Expense]) func() {
		return v.swap(id, func(e core.Expense) core.Expense {
			e = patch.Apply(e)
			e.UpdatedAt = s.now()
			return e
		})
	})

	if err := s.store.Update(ctx, id, patch); err != nil {
		_ = p.Rollback()
		s.logger.LogError(ctx, "Expense update failed", err, log.OpUpdate, log.LogFields{log.FieldExpenseID: id})
		return opError(log.OpUpdate, entityExpense, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionUpdate, id)
	return nil
}

// Delete moves the expense to the trash.
func (s *ExpenseService) Delete(ctx context.Context, view *View[core.Expense], id int64) error {
	p := Begin(view, func(v *View[core.Expense]) func() { return v.take(id) })

	if err := s.store.SoftDelete(ctx, id); err != nil {
		_ = p.Rollback()
		return opError(log.OpDelete, entityExpense, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionDelete, id)
	return nil
}

// Restore takes the expense out of the trash. view is the trash list the
// caller shows, if any; the record leaves it at once.
func (s *ExpenseService) Restore(ctx context.Context, view *View[core.Expense], id int64) error {
	p := Begin(view, func(v *View[core.Expense]) func() { return v.take(id) })

	if err := s.store.Restore(ctx, id); err != nil {
		_ = p.Rollback()
		return opError(log.OpRestore, entityExpense, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionRestore, id)
	return nil
}

// Purge deletes the expense for good, trashed or not.
func (s *ExpenseService) Purge(ctx context.Context, view *View[core.Expense], id int64) error {
	p := Begin(view, func(v *View[core.Expense]) func() { return v.take(id) })

	if _, err := s.store.GetByID(ctx, id); err != nil {
		_ = p.Rollback()
		return opError(log.OpPurge, entityExpense, id, err)
	}
	if err := s.store.Purge(ctx, id); err != nil {
		_ = p.Rollback()
		return opError(log.OpPurge, entityExpense, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionDelete, id)
	return nil
}

// Clear drops every expense, trashed ones included.
func (s *ExpenseService) Clear(ctx context.Context, view *View[core.Expense]) error {
	p := Begin(view, func(v *View[core.Expense]) func() { return v.empty() })

	if err := s.store.Clear(ctx); err != nil {
		_ = p.Rollback()
		return opError(log.OpClear, entityExpense, 0, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionClear, 0)
	return nil
}

// ImportExpenses appends items with fresh ids in one transaction. There is no
// dedup key: importing the same data twice stores it twice.
func (s *ExpenseService) ImportExpenses(ctx context.Context, items []core.NewExpense) error {
	items = slices.Clone(items)
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return opError(log.OpImport, entityExpense, 0,
				&core.ParseError{Document: core.ExpensesDocument, Err: fmt.Errorf("item %d: %w", i, err)})
		}
		items[i].Date = core.StartOfDay(items[i].Date, s.loc)
	}
	if len(items) == 0 {
		return nil
	}

	if err := s.store.BulkInsert(ctx, items); err != nil {
		return opError(log.OpImport, entityExpense, 0, err)
	}

	s.logger.InfoContext(ctx, "Expenses imported", log.NewFields().WithCount(len(items)).ToSlice()...)
	s.publish(ctx, events.ActionCreate, 0)
	return nil
}

// ExportExpenses returns every active expense, newest first.
func (s *ExpenseService) ExportExpenses(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.GetAllActive(ctx)
	if err != nil {
		return nil, opError(log.OpExport, entityExpense, 0, err)
	}
	return items, nil
}

// Subscribe registers h for expenses-changed.
func (s *ExpenseService) Subscribe(h events.Handler) (unsubscribe func()) {
	if s.bus == nil {
		return func() {}
	}
	return s.bus.Subscribe(events.ExpensesChanged, h)
}

func (s *ExpenseService) cached(ctx context.Context, key string, load func() ([]core.Expense, error)) ([]core.Expense, error) {
	if s.cache == nil {
		items, err := load()
		if err != nil {
			return nil, opError(log.OpRead, entityExpense, 0, err)
		}
		return items, nil
	}

	if items, ok := s.cache.Get(key); ok {
		return slices.Clone(items), nil
	}

	gen := s.cache.Generation()
	items, err := load()
	if err != nil {
		return nil, opError(log.OpRead, entityExpense, 0, err)
	}
	if !s.cache.SetIfGeneration(key, slices.Clone(items), gen) {
		s.logger.DebugContext(ctx, "Discarded stale period load", "key", key)
	}
	return items, nil
}

func (s *ExpenseService) publish(ctx context.Context, action events.Action, id int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{Kind: events.ExpensesChanged, Action: action, ID: id, At: s.now()})
}
