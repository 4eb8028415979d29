package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gastos/internal/core"
)

// EncodeExpenses writes items as a pretty-printed gastos.json document.
func EncodeExpenses(w io.Writer, items []core.Expense) error {
	docs := make([]ExpenseDocument, len(items))
	for i, e := range items {
		docs[i] = expenseDocument(e)
	}
	return encode(w, docs)
}

// EncodeCategories writes items as a pretty-printed categorias.json document.
func EncodeCategories(w io.Writer, items []core.Category) error {
	docs := make([]CategoryDocument, len(items))
	for i, c := range items {
		docs[i] = categoryDocument(c)
	}
	return encode(w, docs)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// DecodeExpenses parses a gastos.json document. Any malformed element fails
// the whole document with a *core.ParseError.
func DecodeExpenses(r io.Reader, loc *time.Location) ([]core.NewExpense, error) {
	var docs []ExpenseDocument
	if err := decode(r, &docs); err != nil {
		return nil, &core.ParseError{Document: ExpensesMember, Err: err}
	}
	out := make([]core.NewExpense, len(docs))
	for i, d := range docs {
		e, err := d.toNewExpense(loc)
		if err == nil {
			err = e.Validate()
		}
		if err != nil {
			return nil, &core.ParseError{Document: ExpensesMember, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		out[i] = e
	}
	return out, nil
}

// DecodeCategories parses a categorias.json document.
func DecodeCategories(r io.Reader) ([]core.NewCategory, error) {
	var docs []CategoryDocument
	if err := decode(r, &docs); err != nil {
		return nil, &core.ParseError{Document: CategoriesMember, Err: err}
	}
	out := make([]core.NewCategory, len(docs))
	for i, d := range docs {
		out[i] = d.toNewCategory()
		if err := out[i].Validate(); err != nil {
			return nil, &core.ParseError{Document: CategoriesMember, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return out, nil
}

func decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after document")
	}
	return nil
}
