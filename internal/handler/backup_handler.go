package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

const maxBackupBytes = 32 << 20

type backupService interface {
	Export(ctx context.Context) (*models.Backup, error)
	Import(ctx context.Context, backup *models.Backup) (*models.BackupCounts, error)
}

// BackupHandler exposes full snapshot download and restore.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler constructs the handler.
func NewBackupHandler(svc backupService) *BackupHandler {
	return &BackupHandler{service: svc}
}

// Export godoc
// @Summary Download a full backup
// @Description Streams every record as one JSON document suitable for import
// @Tags Backup
// @Produce json
// @Success 200 {object} models.Backup
// @Security BearerAuth
// @Router /backup [get]
func (h *BackupHandler) Export(c *gin.Context) {
	backup, err := h.service.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to encode backup"))
		return
	}
	filename := fmt.Sprintf("tutor-backup-%s.json", backup.ExportedAt.Format(dateLayout))
	response.Attachment(c, filename, "application/json", data)
}

// Import godoc
// @Summary Restore a backup
// @Description Replaces every record with the snapshot contents
// @Tags Backup
// @Accept json
// @Produce json
// @Param payload body models.Backup true "Backup snapshot"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /backup/import [post]
func (h *BackupHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupBytes)
	var backup models.Backup
	if !bindJSON(c, &backup) {
		return
	}
	counts, err := h.service.Import(c.Request.Context(), &backup)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counts)
}
