package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const periodTotalsQuery = `SELECT
    (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE payment_date >= $1 AND payment_date < $2) AS income,
    (SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date >= $1 AND expense_date < $2) AS expenses,
    (SELECT COUNT(*) FROM payments WHERE payment_date >= $1 AND payment_date < $2) AS payments,
    (SELECT COUNT(DISTINCT l.student_id) FROM payments p JOIN lessons l ON l.id = p.lesson_id
        WHERE p.payment_date >= $1 AND p.payment_date < $2) AS students`

const allTimeTotalsQuery = `SELECT
    (SELECT COALESCE(SUM(amount), 0) FROM payments) AS income,
    (SELECT COALESCE(SUM(amount), 0) FROM expenses) AS expenses,
    (SELECT COUNT(*) FROM payments) AS payments,
    (SELECT COUNT(DISTINCT l.student_id) FROM payments p JOIN lessons l ON l.id = p.lesson_id) AS students`

// FinanceRepository aggregates payments and expenses.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository constructs a FinanceRepository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// PeriodTotals sums income and expenses dated within [from, to).
func (r *FinanceRepository) PeriodTotals(ctx context.Context, from, to time.Time) (*models.FinanceTotals, error) {
	var totals models.FinanceTotals
	if err := r.db.GetContext(ctx, &totals, periodTotalsQuery, from, to); err != nil {
		return nil, fmt.Errorf("period totals: %w", err)
	}
	return &totals, nil
}

// AllTimeTotals sums every payment and expense.
func (r *FinanceRepository) AllTimeTotals(ctx context.Context) (*models.FinanceTotals, error) {
	var totals models.FinanceTotals
	if err := r.db.GetContext(ctx, &totals, allTimeTotalsQuery); err != nil {
		return nil, fmt.Errorf("all time totals: %w", err)
	}
	return &totals, nil
}
