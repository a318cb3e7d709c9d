package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

func TestBackupRepositoryDump(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBackupRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY created_at")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).AddRow("s1", "Anna", "9", "math", "", nil, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons l ORDER BY")).WillReturnRows(sqlmock.NewRows(lessonRowColumns[:15]))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM expenses ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM material_categories ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM problems p ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM theories ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM variants ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	backup, err := repo.Dump(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackupVersion, backup.Version)
	require.Len(t, backup.Students, 1)
	assert.NotNil(t, backup.Lessons)
	assert.Equal(t, 1, backup.Counts().Students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBackupRepository(db)

	now := time.Now()
	backup := &models.Backup{
		Students: []models.Student{{ID: "s1", Name: "Anna", Grade: "9", Subject: models.SubjectMath, CreatedAt: now, UpdatedAt: now}},
		Lessons: []models.Lesson{{ID: "l1", StudentID: "s1", Title: "Algebra", Date: now, StartTime: "10:00", EndTime: "11:00",
			Duration: 60, Status: models.LessonStatusScheduled, CreatedAt: now, UpdatedAt: now}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE payments, lessons, students")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), backup))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupRepositoryReplaceRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBackupRepository(db)

	backup := &models.Backup{Students: []models.Student{{ID: "s1", Name: "Anna"}}}

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO students").WillReturnError(sql.ErrTxDone)
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), backup)
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
