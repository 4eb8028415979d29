package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gastos/internal/core"
)

// CategoryRepository persists categories. Name uniqueness is enforced by the
// unique index, not by lookups before writing.
type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// SeedIfEmpty inserts defaults in one transaction when the table is empty.
// It reports whether anything was inserted.
func (r *CategoryRepository) SeedIfEmpty(ctx context.Context, defaults []core.NewCategory) (bool, error) {
	seeded := false
	err := r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		n, err := q.CountCategories(ctx)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if n > 0 {
			return nil
		}
		for _, c := range defaults {
			if _, err := q.CreateCategory(ctx, c.Name, c.Color); err != nil {
				return categoryWriteError(err, c.Name)
			}
		}
		seeded = len(defaults) > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed categories: %w", err)
	}
	if seeded {
		slog.InfoContext(ctx, "Default categories seeded", "count", len(defaults))
	}
	return seeded, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c core.NewCategory) (int64, error) {
	ctx = context.WithoutCancel(ctx)
	id, err := r.db.queries.CreateCategory(ctx, c.Name, c.Color)
	if err != nil {
		return 0, categoryWriteError(err, c.Name)
	}
	slog.DebugContext(ctx, "Category created", "id", id, "name", c.Name)
	return id, nil
}

// GetAll returns every category; order carries no meaning.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = toCategory(c)
	}
	return out, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.db.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return toCategory(c), nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (core.Category, error) {
	c, err := r.db.queries.GetCategoryByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %q: %w", name, err)
	}
	return toCategory(c), nil
}

// Update merges patch into the stored record inside one transaction.
func (r *CategoryRepository) Update(ctx context.Context, id int64, patch core.CategoryPatch) error {
	return r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		current, err := q.GetCategory(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return &core.NotFoundError{Entity: "category", ID: id}
		}
		if err != nil {
			return fmt.Errorf("get category %d: %w", id, err)
		}
		next := patch.Apply(toCategory(current))
		if err := q.UpdateCategory(ctx, Category{ID: id, Name: next.Name, Color: next.Color}); err != nil {
			return categoryWriteError(err, next.Name)
		}
		return nil
	})
}

// Delete removes the category. Expenses pointing at it are left alone.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.db.queries.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	slog.DebugContext(ctx, "Category deleted", "id", id)
	return nil
}

// UpsertByName reconciles items by name in one transaction: existing records
// are merged (keeping their id), the rest are inserted. An empty color on an
// item keeps the stored one.
func (r *CategoryRepository) UpsertByName(ctx context.Context, items []core.NewCategory) error {
	err := r.db.inTx(ctx, func(ctx context.Context, q *Queries) error {
		for _, item := range items {
			existing, err := q.GetCategoryByName(ctx, item.Name)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := q.CreateCategory(ctx, item.Name, item.Color); err != nil {
					return categoryWriteError(err, item.Name)
				}
			case err != nil:
				return fmt.Errorf("get category %q: %w", item.Name, err)
			default:
				if item.Color != "" {
					existing.Color = item.Color
				}
				if err := q.UpdateCategory(ctx, existing); err != nil {
					return categoryWriteError(err, item.Name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert categories: %w", err)
	}
	slog.InfoContext(ctx, "Categories upserted", "count", len(items))
	return nil
}

// Clear removes every category.
func (r *CategoryRepository) Clear(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.db.queries.DeleteAllCategories(ctx); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	return nil
}

func toCategory(c Category) core.Category {
	return core.Category{ID: c.ID, Name: c.Name, Color: c.Color}
}

func categoryWriteError(err error, name string) error {
	if isUniqueViolation(err) {
		return &core.DuplicateNameError{Name: name}
	}
	return fmt.Errorf("write category %q: %w", name, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
