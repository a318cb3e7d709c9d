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

const exportJobColumns = `id, type, format, params, status, progress, result_path, error_message, created_at, updated_at, finished_at`

// ExportJobRepository persists export job metadata.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job row with generated defaults.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	const query = `INSERT INTO export_jobs (id, type, format, params, status, progress, result_path, error_message, created_at, updated_at, finished_at)
VALUES (:id, :type, :format, :params, :status, :progress, :result_path, :error_message, :created_at, :updated_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, "SELECT "+exportJobColumns+" FROM export_jobs WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// UpdateExportJobParams defines the mutable fields.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	ResultPath   *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	set := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *params.Status)
	}
	if params.Progress != nil {
		set = append(set, fmt.Sprintf("progress = $%d", len(args)+1))
		args = append(args, *params.Progress)
	}
	if params.ResultPath != nil {
		set = append(set, fmt.Sprintf("result_path = $%d", len(args)+1))
		args = append(args, *params.ResultPath)
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", len(args)+1))
		args = append(args, *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", len(args)+1))
		args = append(args, *params.FinishedAt)
	}

	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)+1)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListPending fetches jobs that never reached a terminal state, including ones
// interrupted mid-run, for cold start recovery.
func (r *ExportJobRepository) ListPending(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + exportJobColumns + " FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1"
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	return jobs, nil
}

// ListExpired retrieves jobs created before cutoff that are no longer running.
func (r *ExportJobRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + exportJobColumns + " FROM export_jobs WHERE status IN ('FINISHED', 'FAILED') AND created_at < $1 ORDER BY created_at ASC LIMIT $2"
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list expired export jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job row.
func (r *ExportJobRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM export_jobs WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete export job: %w", err)
	}
	return nil
}
