package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Archive member names.
const (
	ExpensesMember   = core.ExpensesDocument
	CategoriesMember = core.CategoriesDocument
)

// CategoryDocument is one element of categorias.json.
type CategoryDocument struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Color  string `json:"color"`
}

// ExpenseDocument is one element of gastos.json. deletedAt is never written:
// only active expenses are exported.
type ExpenseDocument struct {
	ID          int64  `json:"id"`
	Cantidad    Amount `json:"cantidad"`
	Categoria   Ref    `json:"categoria"`
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Amount is a decimal written as a bare JSON number. Quoted numbers are
// accepted on input.
type Amount struct {
	decimal.Decimal
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

// Ref is a category reference. Older exports carry it as a number.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("categoria must be a string or number: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

func categoryDocument(c core.Category) CategoryDocument {
	return CategoryDocument{ID: c.ID, Nombre: c.Name, Color: c.Color}
}

func expenseDocument(e core.Expense) ExpenseDocument {
	doc := ExpenseDocument{
		ID:          e.ID,
		Cantidad:    Amount{e.Amount},
		Categoria:   Ref(e.Category),
		Fecha:       core.FormatTimestamp(e.Date),
		Descripcion: e.Description,
	}
	if !e.CreatedAt.IsZero() {
		doc.CreatedAt = core.FormatTimestamp(e.CreatedAt)
	}
	if !e.UpdatedAt.IsZero() {
		doc.UpdatedAt = core.FormatTimestamp(e.UpdatedAt)
	}
	return doc
}

// toNewCategory drops the incoming id.
func (d CategoryDocument) toNewCategory() core.NewCategory {
	return core.NewCategory{Name: strings.TrimSpace(d.Nombre), Color: d.Color}
}

// toNewExpense drops the incoming id and parses the timestamps in loc.
func (d ExpenseDocument) toNewExpense(loc *time.Location) (core.NewExpense, error) {
	fecha, err := core.ParseTimestamp(d.Fecha, loc)
	if err != nil {
		return core.NewExpense{}, fmt.Errorf("fecha: %w", err)
	}
	out := core.NewExpense{
		Amount:      d.Cantidad.Decimal,
		Category:    string(d.Categoria),
		Date:        core.StartOfDay(fecha, loc),
		Description: strings.TrimSpace(d.Descripcion),
	}
	if d.CreatedAt != "" {
		if out.CreatedAt, err = core.ParseTimestamp(d.CreatedAt, loc); err != nil {
			return core.NewExpense{}, fmt.Errorf("createdAt: %w", err)
		}
	}
	if d.UpdatedAt != "" {
		if out.UpdatedAt, err = core.ParseTimestamp(d.UpdatedAt, loc); err != nil {
			return core.NewExpense{}, fmt.Errorf("updatedAt: %w", err)
		}
	}
	return out, nil
}
