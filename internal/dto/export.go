package dto

import (
	"time"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Type             models.ExportType   `json:"type" validate:"required,oneof=backup finance materials variant"`
	Format           models.ExportFormat `json:"format" validate:"required,oneof=json csv pdf txt"`
	FromMonth        string              `json:"from_month,omitempty" validate:"omitempty,datetime=2006-01"`
	ToMonth          string              `json:"to_month,omitempty" validate:"omitempty,datetime=2006-01"`
	Subject          models.Subject      `json:"subject,omitempty" validate:"omitempty,oneof=math physics"`
	CategoryID       string              `json:"category_id,omitempty"`
	VariantID        string              `json:"variant_id,omitempty"`
	IncludeAnswers   bool                `json:"include_answers,omitempty"`
	IncludeSolutions bool                `json:"include_solutions,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID          string              `json:"id"`
	Type        models.ExportType   `json:"type"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	DownloadURL *string             `json:"download_url,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Error       *string             `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}
