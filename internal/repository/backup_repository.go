package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

// BackupRepository dumps and restores every tutoring table.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository constructs a BackupRepository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Dump reads every table into a snapshot.
func (r *BackupRepository) Dump(ctx context.Context) (*models.Backup, error) {
	backup := &models.Backup{
		Version:    models.BackupVersion,
		Students:   []models.Student{},
		Lessons:    []models.Lesson{},
		Payments:   []models.Payment{},
		Expenses:   []models.Expense{},
		Categories: []models.MaterialCategory{},
		Problems:   []models.Problem{},
		Theories:   []models.Theory{},
		Variants:   []models.GeneratedVariant{},
	}

	steps := []struct {
		name  string
		dest  interface{}
		query string
	}{
		{"students", &backup.Students, "SELECT " + studentColumns + " FROM students ORDER BY created_at"},
		{"lessons", &backup.Lessons, "SELECT " + lessonColumns + " FROM lessons l ORDER BY l.lesson_date, l.start_time"},
		{"payments", &backup.Payments, "SELECT " + paymentColumns + " FROM payments ORDER BY payment_date"},
		{"expenses", &backup.Expenses, "SELECT " + expenseColumns + " FROM expenses ORDER BY expense_date"},
		{"categories", &backup.Categories, "SELECT " + categoryColumns + " FROM material_categories ORDER BY parent_id NULLS FIRST, sort_order"},
		{"problems", &backup.Problems, "SELECT " + problemColumns + " FROM problems p ORDER BY p.created_at"},
		{"theories", &backup.Theories, "SELECT " + theoryColumns + " FROM theories ORDER BY created_at"},
		{"variants", &backup.Variants, "SELECT " + variantColumns + " FROM variants ORDER BY created_at"},
	}
	for _, step := range steps {
		if err := r.db.SelectContext(ctx, step.dest, step.query); err != nil {
			return nil, fmt.Errorf("dump %s: %w", step.name, err)
		}
	}
	return backup, nil
}

// Replace wipes every table and loads the snapshot in one transaction.
func (r *BackupRepository) Replace(ctx context.Context, backup *models.Backup) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "TRUNCATE payments, lessons, students, expenses, variants, theories, problems, material_categories"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}

	if err = insertAll(ctx, tx, "students", `INSERT INTO students (id, name, grade, subject, goal, phone, email, notes, created_at, updated_at)
        VALUES (:id, :name, :grade, :subject, :goal, :phone, :email, :notes, :created_at, :updated_at)`, backup.Students); err != nil {
		return err
	}
	if err = insertAll(ctx, tx, "lessons", `INSERT INTO lessons (id, student_id, title, description, lesson_date, start_time, end_time, duration, status, price, paid, subject, notes, created_at, updated_at)
        VALUES (:id, :student_id, :title, :description, :lesson_date, :start_time, :end_time, :duration, :status, :price, :paid, :subject, :notes, :created_at, :updated_at)`, backup.Lessons); err != nil {
		return err
	}
	if err = insertAll(ctx, tx, "payments", `INSERT INTO payments (id, lesson_id, amount, payment_date, method, notes, created_at)
        VALUES (:id, :lesson_id, :amount, :payment_date, :method, :notes, :created_at)`, backup.Payments); err != nil {
		return err
	}
	if err = insertAll(ctx, tx, "expenses", `INSERT INTO expenses (id, expense_date, category, description, amount, receipt, created_at)
        VALUES (:id, :expense_date, :category, :description, :amount, :receipt, :created_at)`, backup.Expenses); err != nil {
		return err
	}
	for i := range backup.Categories {
		if err = insertCategory(ctx, tx, &backup.Categories[i]); err != nil {
			return err
		}
	}
	for i := range backup.Problems {
		if err = insertProblem(ctx, tx, &backup.Problems[i]); err != nil {
			return err
		}
	}
	for i := range backup.Theories {
		if err = insertTheory(ctx, tx, &backup.Theories[i]); err != nil {
			return err
		}
	}
	for i := range backup.Variants {
		if err = insertVariant(ctx, tx, &backup.Variants[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

func insertAll[T any](ctx context.Context, exec sqlx.ExtContext, name, query string, rows []T) error {
	for i := range rows {
		if _, err := sqlx.NamedExecContext(ctx, exec, query, &rows[i]); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return nil
}
