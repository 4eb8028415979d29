package transfer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/core"
	"gastos/internal/log"
)

type (
	// Expenses is the expense side of the data access façade.
	Expenses interface {
		ExportExpenses(ctx context.Context) ([]core.Expense, error)
		ImportExpenses(ctx context.Context, items []core.NewExpense) error
	}

	// Categories is the category side of the data access façade.
	Categories interface {
		ExportCategories(ctx context.Context) ([]core.Category, error)
		ImportCategories(ctx context.Context, items []core.NewCategory) error
	}
)

// Documents holds the serialized forms to import. Either side may be nil.
type Documents struct {
	Expenses   io.Reader
	Categories io.Reader
}

// Result counts what an import stored.
type Result struct {
	Expenses   int
	Categories int
}

// Transfer moves both collections in and out of their JSON documents.
type Transfer struct {
	expenses   Expenses
	categories Categories
	loc        *time.Location
	logger     *log.Logger
}

func New(expenses Expenses, categories Categories, loc *time.Location, logger *log.Logger) *Transfer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Transfer{
		expenses:   expenses,
		categories: categories,
		loc:        loc,
		logger:     logger.WithComponent(log.ComponentTransfer),
	}
}

// ExportExpenses writes every active expense to w and returns how many.
func (t *Transfer) ExportExpenses(ctx context.Context, w io.Writer) (int, error) {
	items, err := t.expenses.ExportExpenses(ctx)
	if err != nil {
		return 0, err
	}
	if err := EncodeExpenses(w, items); err != nil {
		return 0, fmt.Errorf("encode expenses: %w", err)
	}
	return len(items), nil
}

// ExportCategories writes every category to w and returns how many.
func (t *Transfer) ExportCategories(ctx context.Context, w io.Writer) (int, error) {
	items, err := t.categories.ExportCategories(ctx)
	if err != nil {
		return 0, err
	}
	if err := EncodeCategories(w, items); err != nil {
		return 0, fmt.Errorf("encode categories: %w", err)
	}
	return len(items), nil
}

// ExportDir writes gastos.json and categorias.json into dir.
func (t *Transfer) ExportDir(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	expenses, categories, err := t.render(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ExpensesMember), expenses, 0644); err != nil {
		return fmt.Errorf("write %s: %w", ExpensesMember, err)
	}
	if err := os.WriteFile(filepath.Join(dir, CategoriesMember), categories, 0644); err != nil {
		return fmt.Errorf("write %s: %w", CategoriesMember, err)
	}
	t.logger.InfoContext(ctx, "Exported documents", log.FieldPath, dir)
	return nil
}

// ExportArchive writes a zip holding both documents.
func (t *Transfer) ExportArchive(ctx context.Context, w io.Writer) error {
	expenses, categories, err := t.render(ctx)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, m := range []struct {
		name string
		data []byte
	}{
		{ExpensesMember, expenses},
		{CategoriesMember, categories},
	} {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: m.name, Method: zip.Deflate, Modified: time.Now()})
		if err != nil {
			return fmt.Errorf("add %s: %w", m.name, err)
		}
		if _, err := fw.Write(m.data); err != nil {
			return fmt.Errorf("write %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	t.logger.InfoContext(ctx, "Exported archive")
	return nil
}

// render encodes both collections concurrently; they are independent reads.
func (t *Transfer) render(ctx context.Context) (expenses, categories []byte, err error) {
	var eb, cb bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := t.ExportExpenses(gctx, &eb)
		return err
	})
	g.Go(func() error {
		_, err := t.ExportCategories(gctx, &cb)
		return err
	})
	if err := g.Wait(); err != nil {
		t.logger.LogError(ctx, "Export failed", err, log.OpExport, nil)
		return nil, nil, err
	}
	return eb.Bytes(), cb.Bytes(), nil
}

// Import parses every supplied document before writing anything, then
// merges categories by name and appends expenses.
func (t *Transfer) Import(ctx context.Context, docs Documents) (Result, error) {
	var (
		res        Result
		expenses   []core.NewExpense
		categories []core.NewCategory
		err        error
	)
	if docs.Expenses == nil && docs.Categories == nil {
		return res, &core.ParseError{Document: "import", Err: errors.New("no documents supplied")}
	}
	if docs.Categories != nil {
		if categories, err = DecodeCategories(docs.Categories); err != nil {
			return res, err
		}
	}
	if docs.Expenses != nil {
		if expenses, err = DecodeExpenses(docs.Expenses, t.loc); err != nil {
			return res, err
		}
	}

	if docs.Categories != nil {
		if err := t.categories.ImportCategories(ctx, categories); err != nil {
			return res, err
		}
		res.Categories = len(categories)
	}
	if docs.Expenses != nil {
		if err := t.expenses.ImportExpenses(ctx, expenses); err != nil {
			return res, err
		}
		res.Expenses = len(expenses)
	}

	t.logger.InfoContext(ctx, "Import finished",
		"expenses", res.Expenses,
		"categories", res.Categories)
	return res, nil
}

// ImportFiles imports from paths; an empty path skips that side.
func (t *Transfer) ImportFiles(ctx context.Context, expensesPath, categoriesPath string) (Result, error) {
	var docs Documents
	if expensesPath != "" {
		f, err := os.Open(expensesPath)
		if err != nil {
			return Result{}, fmt.Errorf("open expenses document: %w", err)
		}
		defer f.Close()
		docs.Expenses = f
	}
	if categoriesPath != "" {
		f, err := os.Open(categoriesPath)
		if err != nil {
			return Result{}, fmt.Errorf("open categories document: %w", err)
		}
		defer f.Close()
		docs.Categories = f
	}
	return t.Import(ctx, docs)
}

// ImportArchive imports whichever of the two members the zip holds.
func (t *Transfer) ImportArchive(ctx context.Context, r io.ReaderAt, size int64) (Result, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Result{}, &core.ParseError{Document: "archive", Err: err}
	}

	var docs Documents
	for _, f := range zr.File {
		var target *io.Reader
		switch f.Name {
		case ExpensesMember:
			target = &docs.Expenses
		case CategoriesMember:
			target = &docs.Categories
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Result{}, &core.ParseError{Document: f.Name, Err: err}
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Result{}, &core.ParseError{Document: f.Name, Err: err}
		}
		*target = bytes.NewReader(data)
	}
	return t.Import(ctx, docs)
}

// ImportArchiveFile opens path and calls ImportArchive.
func (t *Transfer) ImportArchiveFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat archive: %w", err)
	}
	return t.ImportArchive(ctx, f, info.Size())
}
