package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const expenseColumns = `id, expense_date, category, description, amount, receipt, created_at`

// ExpenseRepository persists business expenses.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs an ExpenseRepository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// List returns expenses ordered by most recent date.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Month != "" {
		conditions = append(conditions, fmt.Sprintf("to_char(expense_date, 'YYYY-MM') = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	where := strings.Join(conditions, " AND ")
	_, size, offset := models.NormalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM expenses WHERE %s ORDER BY expense_date DESC, created_at DESC LIMIT %d OFFSET %d", expenseColumns, where, size, offset)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM expenses WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	return expenses, total, nil
}

// ListRange returns all expenses dated within [from, to).
func (r *ExpenseRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	var expenses []models.Expense
	query := "SELECT " + expenseColumns + " FROM expenses WHERE expense_date >= $1 AND expense_date < $2 ORDER BY expense_date ASC"
	if err := r.db.SelectContext(ctx, &expenses, query, from, to); err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	return expenses, nil
}

// FindByID fetches an expense.
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Create inserts an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO expenses (id, expense_date, category, description, amount, receipt, created_at)
        VALUES (:id, :expense_date, :category, :description, :amount, :receipt, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// Update modifies an expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	const query = `UPDATE expenses SET expense_date = :expense_date, category = :category, description = :description, amount = :amount, receipt = :receipt WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// Delete removes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectAffected(res)
}
