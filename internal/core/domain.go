package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Expense is a single stored outflow. Date holds the local midnight of the
	// day the expense belongs to; DeletedAt marks the record as trashed.
	Expense struct {
		ID          int64
		Amount      decimal.Decimal
		Category    string // soft reference to Category.ID, may dangle
		Date        time.Time
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
		DeletedAt   *time.Time
	}

	// NewExpense is the caller-supplied part of an expense. CreatedAt and
	// UpdatedAt are only honoured by bulk imports.
	NewExpense struct {
		Amount      decimal.Decimal
		Category    string
		Date        time.Time
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpensePatch is a partial update; nil fields are left untouched.
	ExpensePatch struct {
		Amount      *decimal.Decimal
		Category    *string
		Date        *time.Time
		Description *string
	}

	Category struct {
		ID    int64
		Name  string
		Color string
	}

	NewCategory struct {
		Name  string
		Color string
	}

	CategoryPatch struct {
		Name  *string
		Color *string
	}
)

// UnknownCategory is what a dangling expense category reference resolves to.
var UnknownCategory = Category{ID: 0, Name: "Sin categoría", Color: "gray"}

// CategoryRef is the form an expense uses to point at a category.
func CategoryRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Active reports whether the expense is outside the trash.
func (e Expense) Active() bool {
	return e.DeletedAt == nil
}

// Apply merges the patch into a copy of e.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	return e
}

// IsEmpty reports whether the patch would change nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Date == nil && p.Description == nil
}

func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	return c
}

// Validate checks the rules the façade enforces before a write. The store
// itself accepts any amount.
func (e NewExpense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if y := e.Date.Year(); y < 1 || y > 9999 {
		return ErrInvalidDate
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (p ExpensePatch) Validate() error {
	if p.Amount != nil && !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Date != nil {
		if p.Date.IsZero() || p.Date.Year() < 1 || p.Date.Year() > 9999 {
			return ErrInvalidDate
		}
	}
	if p.Description != nil && len(*p.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (c NewCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p CategoryPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
