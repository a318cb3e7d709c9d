package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the home dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// ActiveStudents counts students with at least one lesson dated within [from, to).
func (r *DashboardRepository) ActiveStudents(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(DISTINCT student_id) FROM lessons WHERE lesson_date >= $1 AND lesson_date < $2`
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// CountLessons counts lessons with the given status dated within [from, to).
func (r *DashboardRepository) CountLessons(ctx context.Context, status models.LessonStatus, from, to time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM lessons WHERE status = $1 AND lesson_date >= $2 AND lesson_date < $3`
	if err := r.db.GetContext(ctx, &count, query, status, from, to); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}

// UnpaidCompleted lists completed lessons that have not been paid, oldest first.
func (r *DashboardRepository) UnpaidCompleted(ctx context.Context) ([]models.LessonDetail, error) {
	var lessons []models.LessonDetail
	query := lessonDetailSelect + " WHERE l.status = 'completed' AND l.paid = FALSE ORDER BY l.lesson_date ASC, l.start_time ASC"
	if err := r.db.SelectContext(ctx, &lessons, query); err != nil {
		return nil, fmt.Errorf("list unpaid lessons: %w", err)
	}
	return lessons, nil
}

// RecentStudents returns the most recently added students.
func (r *DashboardRepository) RecentStudents(ctx context.Context, limit int) ([]models.Student, error) {
	var students []models.Student
	query := "SELECT " + studentColumns + " FROM students ORDER BY created_at DESC LIMIT $1"
	if err := r.db.SelectContext(ctx, &students, query, limit); err != nil {
		return nil, fmt.Errorf("list recent students: %w", err)
	}
	return students, nil
}

// IncomeByMonth sums payments per month within [from, to). Months without payments are omitted.
func (r *DashboardRepository) IncomeByMonth(ctx context.Context, from, to time.Time) ([]models.MonthAmount, error) {
	var buckets []models.MonthAmount
	const query = `SELECT to_char(payment_date, 'YYYY-MM') AS month, SUM(amount) AS amount FROM payments
WHERE payment_date >= $1 AND payment_date < $2 GROUP BY month ORDER BY month`
	if err := r.db.SelectContext(ctx, &buckets, query, from, to); err != nil {
		return nil, fmt.Errorf("income by month: %w", err)
	}
	return buckets, nil
}

// StudentGrowth counts students created since the cutoff and before it.
func (r *DashboardRepository) StudentGrowth(ctx context.Context, since time.Time) (models.Growth, error) {
	return r.growth(ctx, "students", since)
}

// LessonGrowth counts lessons created since the cutoff and before it.
func (r *DashboardRepository) LessonGrowth(ctx context.Context, since time.Time) (models.Growth, error) {
	return r.growth(ctx, "lessons", since)
}

func (r *DashboardRepository) growth(ctx context.Context, table string, since time.Time) (models.Growth, error) {
	var g models.Growth
	query := fmt.Sprintf(`SELECT COUNT(*) FILTER (WHERE created_at >= $1) AS recent, COUNT(*) FILTER (WHERE created_at < $1) AS before FROM %s`, table)
	if err := r.db.GetContext(ctx, &g, query, since); err != nil {
		return models.Growth{}, fmt.Errorf("%s growth: %w", table, err)
	}
	return g, nil
}
