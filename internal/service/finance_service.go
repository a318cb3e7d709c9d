package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

const maxStatsSeries = 24

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	CreateAndSettle(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type expenseRepository interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
}

type financeTotalsRepository interface {
	PeriodTotals(ctx context.Context, from, to time.Time) (*models.FinanceTotals, error)
	AllTimeTotals(ctx context.Context) (*models.FinanceTotals, error)
}

type lessonFinder interface {
	FindByID(ctx context.Context, id string) (*models.LessonDetail, error)
}

// PaymentRequest is the payload for recording a payment.
type PaymentRequest struct {
	LessonID string               `json:"lesson_id" validate:"required"`
	Amount   int64                `json:"amount" validate:"gt=0"`
	Date     string               `json:"date" validate:"required,datetime=2006-01-02"`
	Method   models.PaymentMethod `json:"method" validate:"required,oneof=cash card transfer"`
	Notes    string               `json:"notes"`
}

// ExpenseRequest is the payload for recording an expense.
type ExpenseRequest struct {
	Date        string                 `json:"date" validate:"required,datetime=2006-01-02"`
	Category    models.ExpenseCategory `json:"category" validate:"required,oneof=materials software advertising office other"`
	Description string                 `json:"description" validate:"required,max=500"`
	Amount      int64                  `json:"amount" validate:"gt=0"`
	Receipt     string                 `json:"receipt" validate:"omitempty,url"`
}

// FinanceService manages payments, expenses and derived statistics.
type FinanceService struct {
	payments  paymentRepository
	expenses  expenseRepository
	totals    financeTotalsRepository
	lessons   lessonFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
}

// FinanceServiceParams groups constructor dependencies.
type FinanceServiceParams struct {
	Payments      paymentRepository
	Expenses      expenseRepository
	Totals        financeTotalsRepository
	Lessons       lessonFinder
	Cache         *CacheService
	Validator     *validator.Validate
	Logger        *zap.Logger
	StatsCacheTTL time.Duration
}

// NewFinanceService constructs the finance service.
func NewFinanceService(params FinanceServiceParams) *FinanceService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.StatsCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FinanceService{
		payments:  params.Payments,
		expenses:  params.Expenses,
		totals:    params.Totals,
		lessons:   params.Lessons,
		cache:     params.Cache,
		validator: validate,
		logger:    logger,
		statsTTL:  ttl,
	}
}

// ListPayments returns payments filtered by month and lesson.
func (s *FinanceService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	if filter.Month != "" {
		if _, _, err := monthRange(filter.Month); err != nil {
			return nil, nil, err
		}
	}
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, newPagination(filter.Page, filter.PageSize, total), nil
}

// GetPayment returns a payment by id.
func (s *FinanceService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment")
	}
	return payment, nil
}

// CreatePayment records a payment and settles its lesson.
func (s *FinanceService) CreatePayment(ctx context.Context, req PaymentRequest) (*models.Payment, error) {
	payment := &models.Payment{}
	if err := s.applyPayment(ctx, payment, req); err != nil {
		return nil, err
	}
	if err := s.payments.CreateAndSettle(ctx, payment); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lesson does not exist")
		}
		return nil, appErrors.Internal(err, "failed to create payment")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("payment recorded", zap.String("payment_id", payment.ID), zap.String("lesson_id", payment.LessonID), zap.Int64("amount", payment.Amount))
	return payment, nil
}

// UpdatePayment edits a payment.
func (s *FinanceService) UpdatePayment(ctx context.Context, id string, req PaymentRequest) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment")
	}
	if err := s.applyPayment(ctx, payment, req); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Internal(err, "failed to update payment")
	}
	s.cache.InvalidateDerived(ctx)
	return payment, nil
}

// DeletePayment removes a payment; the lesson loses its paid flag when no payment remains.
func (s *FinanceService) DeletePayment(ctx context.Context, id string) error {
	if err := s.payments.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Internal(err, "failed to delete payment")
	}
	s.cache.InvalidateDerived(ctx)
	return nil
}

// ListExpenses returns expenses filtered by month and category.
func (s *FinanceService) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	if filter.Month != "" {
		if _, _, err := monthRange(filter.Month); err != nil {
			return nil, nil, err
		}
	}
	if filter.Category != "" {
		if err := s.validator.Var(string(filter.Category), "oneof=materials software advertising office other"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid expense category")
		}
	}
	expenses, total, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list expenses")
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, newPagination(filter.Page, filter.PageSize, total), nil
}

// GetExpense returns an expense by id.
func (s *FinanceService) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense")
	}
	return expense, nil
}

// CreateExpense records an expense.
func (s *FinanceService) CreateExpense(ctx context.Context, req ExpenseRequest) (*models.Expense, error) {
	expense := &models.Expense{}
	if err := s.applyExpense(expense, req); err != nil {
		return nil, err
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, appErrors.Internal(err, "failed to create expense")
	}
	s.cache.InvalidateDerived(ctx)
	return expense, nil
}

// UpdateExpense edits an expense.
func (s *FinanceService) UpdateExpense(ctx context.Context, id string, req ExpenseRequest) (*models.Expense, error) {
	expense, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense")
	}
	if err := s.applyExpense(expense, req); err != nil {
		return nil, err
	}
	if err := s.expenses.Update(ctx, expense); err != nil {
		return nil, appErrors.Internal(err, "failed to update expense")
	}
	s.cache.InvalidateDerived(ctx)
	return expense, nil
}

// DeleteExpense removes an expense.
func (s *FinanceService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.expenses.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return appErrors.Internal(err, "failed to delete expense")
	}
	s.cache.InvalidateDerived(ctx)
	return nil
}

// MonthlyStats aggregates one "YYYY-MM" month.
func (s *FinanceService) MonthlyStats(ctx context.Context, month string) (*models.FinancialStat, error) {
	start, end, err := monthRange(month)
	if err != nil {
		return nil, err
	}
	key := cacheFinancePrefix + "stats:" + start.Format(monthLayout)
	var cached models.FinancialStat
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	stat, err := s.periodStat(ctx, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, stat, s.statsTTL)
	return stat, nil
}

// StatsSeries returns count consecutive months starting at from.
func (s *FinanceService) StatsSeries(ctx context.Context, from string, count int) ([]models.FinancialStat, error) {
	start, _, err := monthRange(from)
	if err != nil {
		return nil, err
	}
	if count < 1 || count > maxStatsSeries {
		return nil, appErrors.Clone(appErrors.ErrValidation, "count must be between 1 and 24")
	}

	series := make([]models.FinancialStat, 0, count)
	for i := 0; i < count; i++ {
		month := start.AddDate(0, i, 0)
		stat, err := s.MonthlyStats(ctx, month.Format(monthLayout))
		if err != nil {
			return nil, err
		}
		series = append(series, *stat)
	}
	return series, nil
}

// Summary returns all-time income, expenses and profit.
func (s *FinanceService) Summary(ctx context.Context) (*models.FinanceSummary, error) {
	key := cacheFinancePrefix + "summary"
	var cached models.FinanceSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	totals, err := s.totals.AllTimeTotals(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute finance summary")
	}
	summary := &models.FinanceSummary{
		TotalIncome:   totals.Income,
		TotalExpenses: totals.Expenses,
		Profit:        totals.Income - totals.Expenses,
	}
	s.cache.Set(ctx, key, summary, s.statsTTL)
	return summary, nil
}

func (s *FinanceService) periodStat(ctx context.Context, start, end time.Time) (*models.FinancialStat, error) {
	totals, err := s.totals.PeriodTotals(ctx, start, end)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute monthly stats")
	}
	return &models.FinancialStat{
		Period:           start.Format(monthLayout),
		TotalIncome:      totals.Income,
		TotalExpenses:    totals.Expenses,
		Profit:           totals.Income - totals.Expenses,
		LessonsCompleted: totals.Payments,
		StudentsCount:    totals.Students,
	}, nil
}

func (s *FinanceService) applyPayment(ctx context.Context, payment *models.Payment, req PaymentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid payment payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	if _, err := s.lessons.FindByID(ctx, req.LessonID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "lesson does not exist")
		}
		return appErrors.Internal(err, "failed to load lesson")
	}
	payment.LessonID = req.LessonID
	payment.Amount = req.Amount
	payment.Date = date
	payment.Method = req.Method
	payment.Notes = nullableString(req.Notes)
	return nil
}

func (s *FinanceService) applyExpense(expense *models.Expense, req ExpenseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid expense payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	expense.Date = date
	expense.Category = req.Category
	expense.Description = req.Description
	expense.Amount = req.Amount
	expense.Receipt = nullableString(req.Receipt)
	return nil
}
