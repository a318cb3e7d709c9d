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

const lessonColumns = `l.id, l.student_id, l.title, l.description, l.lesson_date, l.start_time, l.end_time, l.duration, l.status, l.price, l.paid, l.subject, l.notes, l.created_at, l.updated_at`

const lessonDetailSelect = `SELECT ` + lessonColumns + `, s.name AS student_name FROM lessons l JOIN students s ON s.id = l.student_id`

// LessonRepository manages lesson persistence.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// List returns lessons joined with their student's name.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("l.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("l.subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("l.paid = $%d", len(args)+1))
		args = append(args, *filter.Paid)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("l.lesson_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("l.lesson_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := models.NormalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s WHERE %s ORDER BY l.lesson_date %s, l.start_time %s LIMIT %d OFFSET %d", lessonDetailSelect, where, order, order, size, offset)
	var lessons []models.LessonDetail
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM lessons l WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	var lesson models.LessonDetail
	if err := r.db.GetContext(ctx, &lesson, lessonDetailSelect+" WHERE l.id = $1", id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListByStudent returns every lesson of a student in chronological order.
func (r *LessonRepository) ListByStudent(ctx context.Context, studentID string) ([]models.LessonDetail, error) {
	var lessons []models.LessonDetail
	query := lessonDetailSelect + " WHERE l.student_id = $1 ORDER BY l.lesson_date ASC, l.start_time ASC"
	if err := r.db.SelectContext(ctx, &lessons, query, studentID); err != nil {
		return nil, fmt.Errorf("list student lessons: %w", err)
	}
	return lessons, nil
}

// ListRange returns lessons dated within [from, to] inclusive, ordered by date and start time.
func (r *LessonRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.LessonDetail, error) {
	var lessons []models.LessonDetail
	query := lessonDetailSelect + " WHERE l.lesson_date BETWEEN $1 AND $2 ORDER BY l.lesson_date ASC, l.start_time ASC"
	if err := r.db.SelectContext(ctx, &lessons, query, from, to); err != nil {
		return nil, fmt.Errorf("list lessons in range: %w", err)
	}
	return lessons, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, student_id, title, description, lesson_date, start_time, end_time, duration, status, price, paid, subject, notes, created_at, updated_at)
        VALUES (:id, :student_id, :title, :description, :lesson_date, :start_time, :end_time, :duration, :status, :price, :paid, :subject, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies an existing lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET student_id = :student_id, title = :title, description = :description, lesson_date = :lesson_date,
        start_time = :start_time, end_time = :end_time, duration = :duration, status = :status, price = :price, paid = :paid,
        subject = :subject, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson; its payments cascade.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectAffected(res)
}
