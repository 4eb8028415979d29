package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/log"
)

const entityCategory = "category"

// CategoryService is the façade over the category store.
type CategoryService struct {
	store    CategoryStore
	bus      *events.Bus
	defaults []core.NewCategory
	logger   *log.Logger
	now      func() time.Time
}

type CategoryOption func(*CategoryService)

// WithDefaults replaces the categories seeded into an empty store.
func WithDefaults(defaults []core.NewCategory) CategoryOption {
	return func(s *CategoryService) { s.defaults = defaults }
}

func WithCategoryLogger(logger *log.Logger) CategoryOption {
	return func(s *CategoryService) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentCategory)
		}
	}
}

func NewCategoryService(store CategoryStore, bus *events.Bus, opts ...CategoryOption) *CategoryService {
	s := &CategoryService{
		store:    store,
		bus:      bus,
		defaults: DefaultCategories(),
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentCategory),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the defaults on first use and returns the categories sorted by
// name. It is safe to call on every start.
func (s *CategoryService) Load(ctx context.Context) ([]core.Category, error) {
	seeded, err := s.store.SeedIfEmpty(ctx, s.defaults)
	if err != nil {
		return nil, opError(log.OpSeed, entityCategory, 0, err)
	}
	if seeded {
		s.logger.InfoContext(ctx, "Seeded default categories", log.NewFields().WithCount(len(s.defaults)).ToSlice()...)
		s.publish(ctx, events.ActionCreate, 0)
	}
	return s.List(ctx)
}

// List returns every category sorted by name, case-insensitively.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	items, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, opError("list", entityCategory, 0, err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return core.Category{}, opError(log.OpRead, entityCategory, id, err)
	}
	return c, nil
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (core.Category, error) {
	c, err := s.store.GetByName(ctx, name)
	if err != nil {
		return core.Category{}, opError(log.OpRead, entityCategory, 0, err)
	}
	return c, nil
}

// Resolve maps an expense's category reference to a category, falling back to
// core.UnknownCategory for dangling references.
func (s *CategoryService) Resolve(ctx context.Context, ref string) (core.Category, error) {
	items, err := s.store.GetAll(ctx)
	if err != nil {
		return core.Category{}, opError(log.OpRead, entityCategory, 0, err)
	}
	return core.ResolveCategory(ref, items), nil
}

// Create inserts a category. While the write is in flight view shows it under
// a negative placeholder id; on success the placeholder takes the real id, on
// failure it is removed. view may be nil.
func (s *CategoryService) Create(ctx context.Context, view *View[core.Category], in core.NewCategory) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return 0, opError(log.OpCreate, entityCategory, 0, err)
	}

	placeholder := core.Category{ID: nextPlaceholderID(), Name: in.Name, Color: in.Color}
	p := Begin(view, func(v *View[core.Category]) func() { return v.prepend(placeholder) })

	id, err := s.store.Create(ctx, in)
	if err != nil {
		_ = p.Rollback()
		s.logFailure(ctx, "Category create failed", err, log.OpCreate, 0, in.Name)
		return 0, opError(log.OpCreate, entityCategory, 0, err)
	}

	_ = p.Commit(func(v *View[core.Category]) {
		v.swap(placeholder.ID, func(c core.Category) core.Category {
			c.ID = id
			return c
		})
	})
	s.publish(ctx, events.ActionCreate, id)
	return id, nil
}

// Update merges patch into the category. view is patched immediately and
// restored if the store rejects the write.
func (s *CategoryService) Update(ctx context.Context, view *View[core.Category], id int64, patch core.CategoryPatch) error {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := patch.Validate(); err != nil {
		return opError(log.OpUpdate, entityCategory, id, err)
	}

	p := Begin(view, func(v *View[core.Category]) func() { return v.swap(id, patch.Apply) })

	if err := s.store.Update(ctx, id, patch); err != nil {
		_ = p.Rollback()
		s.logFailure(ctx, "Category update failed", err, log.OpUpdate, id, "")
		return opError(log.OpUpdate, entityCategory, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionUpdate, id)
	return nil
}

// Delete removes the category. Expenses keep their reference and resolve to
// the Unknown placeholder from then on.
func (s *CategoryService) Delete(ctx context.Context, view *View[core.Category], id int64) error {
	p := Begin(view, func(v *View[core.Category]) func() { return v.take(id) })

	if _, err := s.store.GetByID(ctx, id); err != nil {
		_ = p.Rollback()
		return opError(log.OpDelete, entityCategory, id, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		_ = p.Rollback()
		s.logFailure(ctx, "Category delete failed", err, log.OpDelete, id, "")
		return opError(log.OpDelete, entityCategory, id, err)
	}

	_ = p.Commit(nil)
	s.publish(ctx, events.ActionDelete, id)
	return nil
}

// Clear removes every category.
func (s *CategoryService) Clear(ctx context.Context, view *View[core.Category]) error {
	p := Begin(view, func(v *View[core.Category]) func() { return v.empty() })

	if err := s.store.Clear(ctx); err != nil {
		_ = p.Rollback()
		return opError(log.OpClear, entityCategory, 0, err)
	}

	_ = p.Commit(nil)
	s.logger.WarnContext(ctx, "All categories cleared")
	s.publish(ctx, events.ActionClear, 0)
	return nil
}

// ImportCategories reconciles items by name. Incoming ids are ignored, so
// running the same import twice leaves one record per name.
func (s *CategoryService) ImportCategories(ctx context.Context, items []core.NewCategory) error {
	items = slices.Clone(items)
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		if err := items[i].Validate(); err != nil {
			return opError(log.OpImport, entityCategory, 0, &core.ParseError{Document: core.CategoriesDocument, Err: fmt.Errorf("item %d: %w", i, err)})
		}
	}
	if len(items) == 0 {
		return nil
	}

	if err := s.store.UpsertByName(ctx, items); err != nil {
		return opError(log.OpImport, entityCategory, 0, err)
	}

	s.logger.InfoContext(ctx, "Categories imported", log.NewFields().WithCount(len(items)).ToSlice()...)
	s.publish(ctx, events.ActionUpdate, 0)
	return nil
}

// ExportCategories returns every category, ordered by id.
func (s *CategoryService) ExportCategories(ctx context.Context) ([]core.Category, error) {
	items, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, opError(log.OpExport, entityCategory, 0, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Subscribe registers h for categories-changed.
func (s *CategoryService) Subscribe(h events.Handler) (unsubscribe func()) {
	if s.bus == nil {
		return func() {}
	}
	return s.bus.Subscribe(events.CategoriesChanged, h)
}

func (s *CategoryService) publish(ctx context.Context, action events.Action, id int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{Kind: events.CategoriesChanged, Action: action, ID: id, At: s.now()})
}

func (s *CategoryService) logFailure(ctx context.Context, msg string, err error, op string, id int64, name string) {
	// Name collisions log at debug.
	if errors.Is(err, core.ErrDuplicateName) {
		s.logger.DebugContext(ctx, msg, log.NewFields().WithCategory(id, name).WithError(err).ToSlice()...)
		return
	}
	s.logger.LogError(ctx, msg, err, op, log.NewFields().WithCategory(id, name))
}
