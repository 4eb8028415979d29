package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds every statement the repositories run. It works the same over
// the pool and inside a transaction.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense is a raw expenses row: timestamps and amounts as stored text.
type Expense struct {
	ID          int64
	Amount      string
	Category    string
	Date        string
	Description string
	CreatedAt   sql.NullString
	UpdatedAt   sql.NullString
	DeletedAt   sql.NullString
}

// Category is a raw categories row.
type Category struct {
	ID    int64
	Name  string
	Color string
}

const expenseColumns = `id, amount, category, date, description, created_at, updated_at, deleted_at`

const createExpense = `INSERT INTO expenses (amount, category, date, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	Amount      string
	Category    string
	Date        string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExpense,
		arg.Amount, arg.Category, arg.Date, arg.Description, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

// Range scan over idx_expenses_date; trashed rows come back too.
const listExpensesByDate = `SELECT ` + expenseColumns + ` FROM expenses
WHERE date BETWEEN ? AND ?`

func (q *Queries) ListExpensesByDate(ctx context.Context, from, to string) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesByDate, from, to)
}

const listTrashedExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE deleted_at IS NOT NULL
ORDER BY deleted_at DESC, id DESC`

func (q *Queries) ListTrashedExpenses(ctx context.Context) ([]Expense, error) {
	return q.listExpenses(ctx, listTrashedExpenses)
}

const listActiveExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE deleted_at IS NULL
ORDER BY date DESC, id DESC`

func (q *Queries) ListActiveExpenses(ctx context.Context) ([]Expense, error) {
	return q.listExpenses(ctx, listActiveExpenses)
}

const updateExpense = `UPDATE expenses
SET amount = ?, category = ?, date = ?, description = ?, updated_at = ?
WHERE id = ?`

type UpdateExpenseParams struct {
	ID          int64
	Amount      string
	Category    string
	Date        string
	Description string
	UpdatedAt   string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, updateExpense,
		arg.Amount, arg.Category, arg.Date, arg.Description, arg.UpdatedAt, arg.ID)
	return err
}

const setExpenseDeletedAt = `UPDATE expenses SET deleted_at = ? WHERE id = ?`

func (q *Queries) SetExpenseDeletedAt(ctx context.Context, id int64, deletedAt string) error {
	_, err := q.db.ExecContext(ctx, setExpenseDeletedAt, deletedAt, id)
	return err
}

const restoreExpense = `UPDATE expenses SET deleted_at = NULL, updated_at = ? WHERE id = ?`

func (q *Queries) RestoreExpense(ctx context.Context, id int64, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, restoreExpense, updatedAt, id)
	return err
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllExpenses)
	return err
}

const countCategories = `SELECT COUNT(*) FROM categories`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

const createCategory = `INSERT INTO categories (name, color) VALUES (?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, name, color string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createCategory, name, color)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getCategory = `SELECT id, name, color FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&c.ID, &c.Name, &c.Color)
	return c, err
}

// Point lookup through idx_categories_name.
const getCategoryByName = `SELECT id, name, color FROM categories WHERE name = ?`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategoryByName, name).Scan(&c.ID, &c.Name, &c.Color)
	return c, err
}

const listCategories = `SELECT id, name, color FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `UPDATE categories SET name = ?, color = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c Category) error {
	_, err := q.db.ExecContext(ctx, updateCategory, c.Name, c.Color, c.ID)
	return err
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const deleteAllCategories = `DELETE FROM categories`

func (q *Queries) DeleteAllCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllCategories)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Category, &e.Date, &e.Description,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	return e, err
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
