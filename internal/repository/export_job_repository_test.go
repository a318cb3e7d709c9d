package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

var exportJobRowColumns = []string{"id", "type", "format", "params", "status", "progress", "result_path", "error_message", "created_at", "updated_at", "finished_at"}

func TestExportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "finance", "csv", sqlmock.AnyArg(), "QUEUED", 0, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		Type:   models.ExportTypeFinance,
		Format: models.ExportFormatCSV,
		Params: models.ExportParams{FromMonth: "2024-01", ToMonth: "2024-03"},
	}
	require.NoError(t, repo.Create(context.Background(), job))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow(job.ID, "finance", "csv", `{"from_month":"2024-01","to_month":"2024-03"}`, "QUEUED", 0, nil, nil, now, now, nil))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-03", fetched.Params.ToMonth)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now()
	status := models.ExportStatusFinished
	progress := 100
	path := "exports/job-1.csv"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET updated_at = $1, status = $2, progress = $3, result_path = $4, finished_at = $5 WHERE id = $6")).
		WithArgs(sqlmock.AnyArg(), status, progress, path, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateExportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultPath: &path,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('FINISHED', 'FAILED') AND created_at < $1 ORDER BY created_at ASC LIMIT $2")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns))

	jobs, err := repo.ListExpired(context.Background(), cutoff, 0)
	require.NoError(t, err)
	require.Empty(t, jobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-1", "backup", "json", `{}`, "QUEUED", 0, nil, nil, now, now, nil).
			AddRow("job-2", "finance", "csv", `{}`, "PROCESSING", 40, nil, nil, now, now, nil))

	jobs, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, models.ExportStatusProcessing, jobs[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
