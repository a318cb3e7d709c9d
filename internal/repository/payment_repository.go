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

const paymentColumns = `id, lesson_id, amount, payment_date, method, notes, created_at`

const (
	settleLessonQuery   = `UPDATE lessons SET paid = TRUE, status = 'completed', updated_at = $2 WHERE id = $1`
	unsettleLessonQuery = `UPDATE lessons SET paid = FALSE, updated_at = $2 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM payments WHERE lesson_id = $1)`
)

// PaymentRepository persists lesson payments and keeps the lesson paid flag in sync.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments ordered by most recent date.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Month != "" {
		conditions = append(conditions, fmt.Sprintf("to_char(payment_date, 'YYYY-MM') = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.LessonID != "" {
		conditions = append(conditions, fmt.Sprintf("lesson_id = $%d", len(args)+1))
		args = append(args, filter.LessonID)
	}
	where := strings.Join(conditions, " AND ")
	_, size, offset := models.NormalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM payments WHERE %s ORDER BY payment_date DESC, created_at DESC LIMIT %d OFFSET %d", paymentColumns, where, size, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM payments WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// ListRange returns all payments dated within [from, to).
func (r *PaymentRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	query := "SELECT " + paymentColumns + " FROM payments WHERE payment_date >= $1 AND payment_date < $2 ORDER BY payment_date ASC"
	if err := r.db.SelectContext(ctx, &payments, query, from, to); err != nil {
		return nil, fmt.Errorf("list payments in range: %w", err)
	}
	return payments, nil
}

// FindByID fetches a payment.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreateAndSettle inserts the payment and marks its lesson paid and completed in one transaction.
func (r *PaymentRepository) CreateAndSettle(ctx context.Context, payment *models.Payment) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO payments (id, lesson_id, amount, payment_date, method, notes, created_at)
        VALUES (:id, :lesson_id, :amount, :payment_date, :method, :notes, :created_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	res, err := tx.ExecContext(ctx, settleLessonQuery, payment.LessonID, now)
	if err != nil {
		return fmt.Errorf("settle lesson: %w", err)
	}
	if err = expectAffected(res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create payment: %w", err)
	}
	return nil
}

// Update modifies a payment. When the payment moves to another lesson the
// new lesson is settled and the old one unsettled if nothing else pays for it.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var previousLesson string
	if err = tx.GetContext(ctx, &previousLesson, "SELECT lesson_id FROM payments WHERE id = $1 FOR UPDATE", payment.ID); err != nil {
		return err
	}

	const update = `UPDATE payments SET lesson_id = :lesson_id, amount = :amount, payment_date = :payment_date, method = :method, notes = :notes WHERE id = :id`
	if _, err = sqlx.NamedExecContext(ctx, tx, update, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if previousLesson != payment.LessonID {
		now := time.Now().UTC()
		res, execErr := tx.ExecContext(ctx, settleLessonQuery, payment.LessonID, now)
		if execErr != nil {
			err = fmt.Errorf("settle lesson: %w", execErr)
			return err
		}
		if err = expectAffected(res); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, unsettleLessonQuery, previousLesson, now); err != nil {
			return fmt.Errorf("unsettle lesson: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update payment: %w", err)
	}
	return nil
}

// Delete removes a payment and clears the lesson paid flag when it was the last one.
func (r *PaymentRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lessonID string
	if err = tx.GetContext(ctx, &lessonID, "DELETE FROM payments WHERE id = $1 RETURNING lesson_id", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, unsettleLessonQuery, lessonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("unsettle lesson: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete payment: %w", err)
	}
	return nil
}
