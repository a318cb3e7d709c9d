package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type fakeFinanceService struct {
	paymentFilter models.PaymentFilter
	expenseFilter models.ExpenseFilter
	lastPayment   service.PaymentRequest
	seriesFrom    string
	seriesCount   int
}

func (f *fakeFinanceService) ListPayments(_ context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	f.paymentFilter = filter
	return []models.Payment{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeFinanceService) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	return &models.Payment{ID: id}, nil
}

func (f *fakeFinanceService) CreatePayment(_ context.Context, req service.PaymentRequest) (*models.Payment, error) {
	f.lastPayment = req
	if req.LessonID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return &models.Payment{ID: "p-1", LessonID: req.LessonID, Amount: req.Amount}, nil
}

func (f *fakeFinanceService) UpdatePayment(_ context.Context, id string, req service.PaymentRequest) (*models.Payment, error) {
	return &models.Payment{ID: id, Amount: req.Amount}, nil
}

func (f *fakeFinanceService) DeletePayment(context.Context, string) error { return nil }

func (f *fakeFinanceService) ListExpenses(_ context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	f.expenseFilter = filter
	return []models.Expense{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeFinanceService) GetExpense(_ context.Context, id string) (*models.Expense, error) {
	return &models.Expense{ID: id}, nil
}

func (f *fakeFinanceService) CreateExpense(_ context.Context, req service.ExpenseRequest) (*models.Expense, error) {
	return &models.Expense{ID: "e-1", Amount: req.Amount}, nil
}

func (f *fakeFinanceService) UpdateExpense(_ context.Context, id string, req service.ExpenseRequest) (*models.Expense, error) {
	return &models.Expense{ID: id}, nil
}

func (f *fakeFinanceService) DeleteExpense(context.Context, string) error { return nil }

func (f *fakeFinanceService) MonthlyStats(_ context.Context, month string) (*models.FinancialStat, error) {
	return &models.FinancialStat{Period: month, TotalIncome: 3000, TotalExpenses: 500, Profit: 2500}, nil
}

func (f *fakeFinanceService) StatsSeries(_ context.Context, from string, count int) ([]models.FinancialStat, error) {
	f.seriesFrom, f.seriesCount = from, count
	return []models.FinancialStat{}, nil
}

func (f *fakeFinanceService) Summary(context.Context) (*models.FinanceSummary, error) {
	return &models.FinanceSummary{TotalIncome: 10, TotalExpenses: 4, Profit: 6}, nil
}

func TestFinanceHandlerListFilters(t *testing.T) {
	svc := &fakeFinanceService{}
	handler := NewFinanceHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/finance/payments?month=2024-03&lesson_id=l-1", nil)
	handler.ListPayments(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03", svc.paymentFilter.Month)
	assert.Equal(t, "l-1", svc.paymentFilter.LessonID)

	c, rec = newTestContext(http.MethodGet, "/finance/expenses?category=software&limit=50", nil)
	handler.ListExpenses(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExpenseCategorySoftware, svc.expenseFilter.Category)
	assert.Equal(t, 50, svc.expenseFilter.PageSize)
}

func TestFinanceHandlerCreatePayment(t *testing.T) {
	svc := &fakeFinanceService{}
	handler := NewFinanceHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/finance/payments", service.PaymentRequest{LessonID: "l-1", Amount: 1500, Date: "2024-03-05", Method: models.PaymentMethodCash})

	handler.CreatePayment(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1500, svc.lastPayment.Amount)
}

func TestFinanceHandlerCreatePaymentMissingLesson(t *testing.T) {
	handler := NewFinanceHandler(&fakeFinanceService{})
	c, rec := newTestContext(http.MethodPost, "/finance/payments", service.PaymentRequest{LessonID: "missing", Amount: 1, Date: "2024-03-05", Method: models.PaymentMethodCash})

	handler.CreatePayment(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinanceHandlerMonthlyStats(t *testing.T) {
	handler := NewFinanceHandler(&fakeFinanceService{})

	c, rec := newTestContext(http.MethodGet, "/finance/stats/monthly", nil)
	handler.MonthlyStats(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/finance/stats/monthly?month=2024-03", nil)
	handler.MonthlyStats(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var stat models.FinancialStat
	decodeData(t, rec, &stat)
	assert.EqualValues(t, 2500, stat.Profit)
}

func TestFinanceHandlerStatsSeries(t *testing.T) {
	svc := &fakeFinanceService{}
	handler := NewFinanceHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/finance/stats/series?from=2024-01", nil)
	handler.StatsSeries(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01", svc.seriesFrom)
	assert.Equal(t, 6, svc.seriesCount)

	c, rec = newTestContext(http.MethodGet, "/finance/stats/series?from=2024-01&count=x", nil)
	handler.StatsSeries(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinanceHandlerDeleteExpense(t *testing.T) {
	handler := NewFinanceHandler(&fakeFinanceService{})
	c, _ := newTestContext(http.MethodDelete, "/finance/expenses/e-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}

	handler.DeleteExpense(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
}
