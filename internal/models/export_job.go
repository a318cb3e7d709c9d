package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportType enumerates what an export job renders.
type ExportType string

const (
	ExportTypeBackup    ExportType = "backup"
	ExportTypeFinance   ExportType = "finance"
	ExportTypeMaterials ExportType = "materials"
	ExportTypeVariant   ExportType = "variant"
)

// ExportFormat enumerates output file formats.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatTXT  ExportFormat = "txt"
)

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatJSON:
		return "application/json"
	case ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persisted background job metadata.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	Type         ExportType   `db:"type" json:"type"`
	Format       ExportFormat `db:"format" json:"format"`
	Params       ExportParams `db:"params" json:"params"`
	Status       ExportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	ResultPath   *string      `db:"result_path" json:"-"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}

// ExportParams stores request-scoped options persisted as JSONB.
type ExportParams struct {
	FromMonth        string  `json:"from_month,omitempty"`
	ToMonth          string  `json:"to_month,omitempty"`
	Subject          Subject `json:"subject,omitempty"`
	CategoryID       string  `json:"category_id,omitempty"`
	VariantID        string  `json:"variant_id,omitempty"`
	IncludeAnswers   bool    `json:"include_answers,omitempty"`
	IncludeSolutions bool    `json:"include_solutions,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportParams) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = ExportParams{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportParams", value)
	}
	if len(data) == 0 {
		*p = ExportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export params: %w", err)
	}
	return nil
}
