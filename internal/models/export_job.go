package models

import (
	"time"

	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// ExportFormat enumerates booking export renderings.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
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

// ExportJob is a persisted booking export request.
type ExportJob struct {
	ID           string         `db:"id" json:"id"`
	Format       ExportFormat   `db:"format" json:"format"`
	DateFrom     timeofday.Date `db:"date_from" json:"date_from"`
	DateTo       timeofday.Date `db:"date_to" json:"date_to"`
	TestID       *string        `db:"test_id" json:"test_id,omitempty"`
	Status       ExportStatus   `db:"status" json:"status"`
	RowCount     int            `db:"row_count" json:"row_count"`
	FilePath     *string        `db:"file_path" json:"-"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
	DownloadURL  string         `db:"-" json:"download_url,omitempty"`
}

// ExportRequest queues a booking export.
type ExportRequest struct {
	From   string       `json:"from" validate:"required,datetime=2006-01-02"`
	To     string       `json:"to" validate:"required,datetime=2006-01-02"`
	TestID *string      `json:"test_id,omitempty"`
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}
