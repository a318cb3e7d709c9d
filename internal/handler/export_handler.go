package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type exportJobService interface {
	Request(ctx context.Context, req dto.ExportRequest) (*dto.ExportJobResponse, error)
	Status(ctx context.Context, id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes asynchronous file exports.
type ExportHandler struct {
	service exportJobService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportJobService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Request godoc
// @Summary Queue an export
// @Description backup as json, finance as csv or pdf, materials and variants as txt or pdf
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	var req dto.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download an export file
// @Description The signed token is the only credential required
// @Tags Exports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat export file"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
