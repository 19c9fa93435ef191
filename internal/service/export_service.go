package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	"github.com/staffly-dev/hr-attendance-api/pkg/export"
	"github.com/staffly-dev/hr-attendance-api/pkg/storage"
)

type reportLedger interface {
	RangeRows(ctx context.Context, employeeID string, from, to time.Time) ([]models.AttendanceRecord, error)
	Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type reportLeaveSource interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	ledger  reportLedger
	leaves  reportLeaveSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(ledger reportLedger, leaves reportLeaveSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		ledger:  ledger,
		leaves:  leaves,
		storage: store,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	from, err := time.Parse(models.DateLayout, job.Params.DateFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid dateFrom: %w", err)
	}
	to, err := time.Parse(models.DateLayout, job.Params.DateTo)
	if err != nil {
		return nil, fmt.Errorf("invalid dateTo: %w", err)
	}

	dataset, title, err := s.buildDataset(ctx, job, from, to)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.EmployeeID != nil && *job.Params.EmployeeID != "" {
		scope = sanitizeFilename(*job.Params.EmployeeID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob, from, to time.Time) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, job.Params, from, to)
	case models.ReportTypeSummary:
		return s.buildSummaryDataset(ctx, job.Params, from, to)
	case models.ReportTypeLeave:
		return s.buildLeaveDataset(ctx, job.Params, from, to)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	if params.EmployeeID == nil || *params.EmployeeID == "" {
		return export.Dataset{}, "", fmt.Errorf("attendance report requires employeeId")
	}
	rows, err := s.ledger.RangeRows(ctx, *params.EmployeeID, from, to)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load attendance rows: %w", err)
	}
	dataset := export.Dataset{
		Headers: []string{"Date", "Status", "Time In", "Time Out", "Scheduled", "Actual", "Late", "Early Leave", "Overtime"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, rec := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			rec.Date.Format(models.DateLayout),
			string(rec.Status),
			derefClock(rec.TimeIn),
			derefClock(rec.TimeOut),
			strconv.Itoa(rec.ScheduledMinutes),
			strconv.Itoa(rec.ActualMinutes),
			strconv.Itoa(rec.LateMinutes),
			strconv.Itoa(rec.EarlyLeaveMinutes),
			strconv.Itoa(rec.OvertimeMinutes),
		})
	}
	title := fmt.Sprintf("Attendance %s to %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func (s *ExportService) buildSummaryDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	if params.EmployeeID == nil || *params.EmployeeID == "" {
		return export.Dataset{}, "", fmt.Errorf("summary report requires employeeId")
	}
	summary, err := s.ledger.Summary(ctx, *params.EmployeeID, from, to)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load attendance summary: %w", err)
	}
	dataset := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Complete days", strconv.Itoa(summary.Complete)},
			{"Incomplete days", strconv.Itoa(summary.Incomplete)},
			{"Absent days", strconv.Itoa(summary.Absent)},
			{"Manual days", strconv.Itoa(summary.Manual)},
			{"On leave days", strconv.Itoa(summary.OnLeave)},
			{"Total days", strconv.Itoa(summary.Total)},
			{"Late minutes", strconv.Itoa(summary.LateMinutes)},
			{"Overtime minutes", strconv.Itoa(summary.OvertimeMinutes)},
			{"Scheduled minutes", strconv.Itoa(summary.ScheduledMinutes)},
			{"Actual minutes", strconv.Itoa(summary.ActualMinutes)},
		},
	}
	title := fmt.Sprintf("Attendance summary %s to %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func (s *ExportService) buildLeaveDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	filter := models.LeaveFilter{
		DateFrom: &from,
		DateTo:   &to,
		Page:     1,
		PageSize: 1000,
	}
	if params.EmployeeID != nil {
		filter.EmployeeID = *params.EmployeeID
	}
	rows, _, err := s.leaves.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load leave requests: %w", err)
	}
	dataset := export.Dataset{
		Headers: []string{"Employee", "Type", "Start", "End", "Days", "Status", "Reason"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for i := range rows {
		req := rows[i]
		dataset.Rows = append(dataset.Rows, []string{
			req.EmployeeID,
			string(req.Type),
			req.StartDate.Format(models.DateLayout),
			req.EndDate.Format(models.DateLayout),
			strconv.Itoa(req.Days()),
			string(req.Status),
			req.Reason,
		})
	}
	title := fmt.Sprintf("Leave requests %s to %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func derefClock(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
