package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/pkg/export"
)

var bookingExportHeaders = []string{"booking_id", "booking_date", "window", "booking_time", "test", "doctor", "patient_name", "patient_mobile"}

type bookingLister interface {
	ListAll(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (io.ReadCloser, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportConfig controls download links and file retention.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes a rendered export file.
type ExportResult struct {
	RelPath   string
	RowCount  int
	URL       string
	ExpiresAt time.Time
}

// ExportService renders booking listings to files and signs download links for them.
type ExportService struct {
	bookings bookingLister
	storage  fileStorage
	signer   downloadSigner
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	cfg      ExportConfig
	logger   *zap.Logger
}

// NewExportService wires renderers and storage. Nil renderers fall back to the pkg/export defaults.
func NewExportService(bookings bookingLister, store fileStorage, signer downloadSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		bookings: bookings,
		storage:  store,
		signer:   signer,
		csv:      csv,
		pdf:      pdf,
		xlsx:     xlsx,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate renders the bookings selected by the job and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	from, to := job.DateFrom, job.DateTo
	filter := models.BookingFilter{From: &from, To: &to}
	if job.TestID != nil {
		filter.TestID = *job.TestID
	}
	bookings, err := s.bookings.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	dataset := bookingDataset(bookings)
	title := fmt.Sprintf("Bookings %s to %s", job.DateFrom, job.DateTo)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, "Bookings")
	default:
		return nil, fmt.Errorf("unsupported export format %q", job.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Format, err)
	}

	relPath := filepath.ToSlash(filepath.Join(job.ID, buildFilename(job)))
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	url, expiresAt, err := s.DownloadURL(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export generated",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.Int("rows", len(bookings)),
	)
	return &ExportResult{RelPath: relPath, RowCount: len(bookings), URL: url, ExpiresAt: expiresAt}, nil
}

// DownloadURL signs a fresh download link for a stored file.
func (s *ExportService) DownloadURL(jobID, relPath string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download: %w", err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/exports/download?token=%s", prefix, token), expiresAt, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (string, string, time.Time, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open streams a stored export.
func (s *ExportService) Open(relPath string) (io.ReadCloser, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup purges files older than the retention window.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func bookingDataset(bookings []models.Booking) export.Dataset {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		doctor := ""
		if b.DoctorName != nil {
			doctor = *b.DoctorName
		}
		rows = append(rows, map[string]string{
			"booking_id":     b.ID,
			"booking_date":   b.BookingDate.String(),
			"window":         b.WindowStart.String() + "-" + b.WindowEnd.String(),
			"booking_time":   b.BookingTime.String(),
			"test":           b.TestName,
			"doctor":         doctor,
			"patient_name":   b.PatientName,
			"patient_mobile": b.PatientMobile,
		})
	}
	return export.Dataset{Headers: bookingExportHeaders, Rows: rows}
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func buildFilename(job *models.ExportJob) string {
	base := fmt.Sprintf("bookings_%s_%s", job.DateFrom, job.DateTo)
	if job.TestID != nil && *job.TestID != "" {
		base += "_" + *job.TestID
	}
	return sanitizeFilename(base) + "." + string(job.Format)
}

func sanitizeFilename(name string) string {
	cleaned := filenameSanitizer.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "export"
	}
	return cleaned
}
