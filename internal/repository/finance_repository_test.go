package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

func TestFinanceRepositoryPeriodTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT l.student_id)")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"income", "expenses", "payments", "students"}).AddRow(4500, 1200, 3, 2))

	totals, err := repo.PeriodTotals(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), totals.Income)
	assert.Equal(t, int64(1200), totals.Expenses)
	assert.Equal(t, 3, totals.Payments)
	assert.Equal(t, 2, totals.Students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryAllTimeTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COALESCE(SUM(amount), 0) FROM payments) AS income")).
		WillReturnRows(sqlmock.NewRows([]string{"income", "expenses", "payments", "students"}).AddRow(10000, 2500, 7, 3))

	totals, err := repo.AllTimeTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10000), totals.Income)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseRepositoryListByCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExpenseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM expenses WHERE 1=1 AND category = $1")).
		WithArgs(models.ExpenseCategorySoftware).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_date", "category", "description", "amount", "receipt", "created_at"}).
			AddRow("e1", now, "software", "Zoom", 1200, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM expenses")).
		WithArgs(models.ExpenseCategorySoftware).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	expenses, total, err := repo.List(context.Background(), models.ExpenseFilter{Category: models.ExpenseCategorySoftware})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Zoom", expenses[0].Description)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
