package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type financeService interface {
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	CreatePayment(ctx context.Context, req service.PaymentRequest) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id string, req service.PaymentRequest) (*models.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error)
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	CreateExpense(ctx context.Context, req service.ExpenseRequest) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id string, req service.ExpenseRequest) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	MonthlyStats(ctx context.Context, month string) (*models.FinancialStat, error)
	StatsSeries(ctx context.Context, from string, count int) ([]models.FinancialStat, error)
	Summary(ctx context.Context) (*models.FinanceSummary, error)
}

// FinanceHandler exposes payment, expense and statistics endpoints.
type FinanceHandler struct {
	finance financeService
}

// NewFinanceHandler constructs FinanceHandler.
func NewFinanceHandler(finance financeService) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

// ListPayments godoc
// @Summary List payments
// @Tags Finance
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Param lesson_id query string false "Lesson ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/payments [get]
func (h *FinanceHandler) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{Month: c.Query("month"), LessonID: c.Query("lesson_id")}
	filter.Page, filter.PageSize = pageParams(c)
	payments, pagination, err := h.finance.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// GetPayment godoc
// @Summary Get payment
// @Tags Finance
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/payments/{id} [get]
func (h *FinanceHandler) GetPayment(c *gin.Context) {
	payment, err := h.finance.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// CreatePayment godoc
// @Summary Record payment
// @Description Records a payment and marks its lesson paid
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/payments [post]
func (h *FinanceHandler) CreatePayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.finance.CreatePayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// UpdatePayment godoc
// @Summary Update payment
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/payments/{id} [put]
func (h *FinanceHandler) UpdatePayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.finance.UpdatePayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// DeletePayment godoc
// @Summary Delete payment
// @Tags Finance
// @Param id path string true "Payment ID"
// @Success 204
// @Security BearerAuth
// @Router /finance/payments/{id} [delete]
func (h *FinanceHandler) DeletePayment(c *gin.Context) {
	if err := h.finance.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExpenses godoc
// @Summary List expenses
// @Tags Finance
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Param category query string false "Expense category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	filter := models.ExpenseFilter{Month: c.Query("month"), Category: models.ExpenseCategory(c.Query("category"))}
	filter.Page, filter.PageSize = pageParams(c)
	expenses, pagination, err := h.finance.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, pagination)
}

// GetExpense godoc
// @Summary Get expense
// @Tags Finance
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/expenses/{id} [get]
func (h *FinanceHandler) GetExpense(c *gin.Context) {
	expense, err := h.finance.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, expense)
}

// CreateExpense godoc
// @Summary Record expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body service.ExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/expenses [post]
func (h *FinanceHandler) CreateExpense(c *gin.Context) {
	var req service.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.finance.CreateExpense(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// UpdateExpense godoc
// @Summary Update expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body service.ExpenseRequest true "Expense payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/expenses/{id} [put]
func (h *FinanceHandler) UpdateExpense(c *gin.Context) {
	var req service.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.finance.UpdateExpense(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, expense)
}

// DeleteExpense godoc
// @Summary Delete expense
// @Tags Finance
// @Param id path string true "Expense ID"
// @Success 204
// @Security BearerAuth
// @Router /finance/expenses/{id} [delete]
func (h *FinanceHandler) DeleteExpense(c *gin.Context) {
	if err := h.finance.DeleteExpense(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MonthlyStats godoc
// @Summary Statistics of one month
// @Tags Finance
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/stats/monthly [get]
func (h *FinanceHandler) MonthlyStats(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	stat, err := h.finance.MonthlyStats(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stat)
}

// StatsSeries godoc
// @Summary Consecutive monthly statistics
// @Tags Finance
// @Produce json
// @Param from query string true "First month (YYYY-MM)"
// @Param count query int false "Number of months (default 6, max 24)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/stats/series [get]
func (h *FinanceHandler) StatsSeries(c *gin.Context) {
	from := c.Query("from")
	if from == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from is required"))
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "6"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "count must be an integer"))
		return
	}
	series, err := h.finance.StatsSeries(c.Request.Context(), from, count)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, series)
}

// Summary godoc
// @Summary All-time financial totals
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.finance.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
