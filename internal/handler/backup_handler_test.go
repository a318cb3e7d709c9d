package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type fakeBackupService struct {
	imported *models.Backup
}

func (f *fakeBackupService) Export(context.Context) (*models.Backup, error) {
	return &models.Backup{
		Version:    models.BackupVersion,
		ExportedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Students:   []models.Student{{ID: "s-1", Name: "Alice"}},
	}, nil
}

func (f *fakeBackupService) Import(_ context.Context, backup *models.Backup) (*models.BackupCounts, error) {
	if backup.Version > models.BackupVersion {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported backup version")
	}
	f.imported = backup
	counts := backup.Counts()
	return &counts, nil
}

func TestBackupHandlerExportIsAttachment(t *testing.T) {
	handler := NewBackupHandler(&fakeBackupService{})
	c, rec := newTestContext(http.MethodGet, "/backup", nil)

	handler.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="tutor-backup-2024-03-15.json"`, rec.Header().Get("Content-Disposition"))
	var backup models.Backup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &backup))
	assert.Equal(t, models.BackupVersion, backup.Version)
	require.Len(t, backup.Students, 1)
}

func TestBackupHandlerImport(t *testing.T) {
	svc := &fakeBackupService{}
	handler := NewBackupHandler(svc)
	payload := models.Backup{Version: 1, Students: []models.Student{{ID: "s-1", Name: "Alice"}, {ID: "s-2", Name: "Bob"}}}
	c, rec := newTestContext(http.MethodPost, "/backup/import", payload)

	handler.Import(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.imported)
	var counts models.BackupCounts
	decodeData(t, rec, &counts)
	assert.Equal(t, 2, counts.Students)
}

func TestBackupHandlerImportRejectsFutureVersion(t *testing.T) {
	handler := NewBackupHandler(&fakeBackupService{})
	c, rec := newTestContext(http.MethodPost, "/backup/import", models.Backup{Version: 99})

	handler.Import(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
