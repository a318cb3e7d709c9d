package models

import "time"

// PaymentMethod enumerates how a lesson was paid for.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// ExpenseCategory groups business expenses.
type ExpenseCategory string

const (
	ExpenseCategoryMaterials   ExpenseCategory = "materials"
	ExpenseCategorySoftware    ExpenseCategory = "software"
	ExpenseCategoryAdvertising ExpenseCategory = "advertising"
	ExpenseCategoryOffice      ExpenseCategory = "office"
	ExpenseCategoryOther       ExpenseCategory = "other"
)

// Payment records money received for a lesson.
type Payment struct {
	ID        string        `db:"id" json:"id"`
	LessonID  string        `db:"lesson_id" json:"lesson_id"`
	Amount    int64         `db:"amount" json:"amount"`
	Date      time.Time     `db:"payment_date" json:"date"`
	Method    PaymentMethod `db:"method" json:"method"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Expense records money spent on the tutoring business.
type Expense struct {
	ID          string          `db:"id" json:"id"`
	Date        time.Time       `db:"expense_date" json:"date"`
	Category    ExpenseCategory `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Amount      int64           `db:"amount" json:"amount"`
	Receipt     *string         `db:"receipt" json:"receipt,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Month    string
	LessonID string
	Page     int
	PageSize int
}

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	Month    string
	Category ExpenseCategory
	Page     int
	PageSize int
}

// FinancialStat aggregates one calendar month.
type FinancialStat struct {
	Period           string `json:"period"`
	TotalIncome      int64  `json:"total_income"`
	TotalExpenses    int64  `json:"total_expenses"`
	Profit           int64  `json:"profit"`
	LessonsCompleted int    `json:"lessons_completed"`
	StudentsCount    int    `json:"students_count"`
}

// FinanceSummary holds all-time totals.
type FinanceSummary struct {
	TotalIncome   int64 `json:"total_income"`
	TotalExpenses int64 `json:"total_expenses"`
	Profit        int64 `json:"profit"`
}

// FinanceTotals is the raw aggregate behind FinancialStat and FinanceSummary.
type FinanceTotals struct {
	Income   int64 `db:"income"`
	Expenses int64 `db:"expenses"`
	Payments int   `db:"payments"`
	Students int   `db:"students"`
}

// MonthAmount is a monthly income bucket.
type MonthAmount struct {
	Month  string `db:"month" json:"month"`
	Amount int64  `db:"amount" json:"amount"`
}

// Growth compares records created in a recent window against everything before it.
type Growth struct {
	Recent int `db:"recent"`
	Before int `db:"before"`
}
