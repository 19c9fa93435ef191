package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type periodSource interface {
	PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error)
}

type attendanceLedger interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type punchMetrics interface {
	IncPunch(status string)
}

// AttendanceService turns punches into reconciled ledger rows. Kiosk ingest
// and manual corrections share the calculator; they differ only in the
// resulting status flag and in batch error handling.
type AttendanceService struct {
	periods   periodSource
	ledger    attendanceLedger
	metrics   punchMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(periods periodSource, ledger attendanceLedger, metrics punchMetrics, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerClockValidation(validate)
	return &AttendanceService{periods: periods, ledger: ledger, metrics: metrics, validator: validate, logger: logger}
}

// PunchRequest is the kiosk ingestion payload.
type PunchRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Date       string  `json:"date" validate:"required"`
	TimeIn     *string `json:"time_in" validate:"omitempty,clock"`
	TimeOut    *string `json:"time_out" validate:"omitempty,clock"`
}

// RecordPunch reconciles a kiosk punch against that day's schedule and
// upserts the ledger row. A unique-constraint conflict is retried once
// before being surfaced.
func (s *AttendanceService) RecordPunch(ctx context.Context, req PunchRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid punch payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	punch := models.Punch{EmployeeID: req.EmployeeID, Date: date, TimeIn: req.TimeIn, TimeOut: req.TimeOut}
	record, err := s.reconcileAndStore(ctx, punch, false, nil)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncPunch(string(record.Status))
	}
	return record, nil
}

func (s *AttendanceService) reconcileAndStore(ctx context.Context, punch models.Punch, manual bool, notes *string) (*models.AttendanceRecord, error) {
	periods, err := s.periods.PeriodsFor(ctx, punch.EmployeeID, punch.Date)
	if err != nil {
		return nil, err
	}
	computed, err := Reconcile(punch, periods, manual)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		EmployeeID:        punch.EmployeeID,
		Date:              punch.Date,
		TimeIn:            punch.TimeIn,
		TimeOut:           punch.TimeOut,
		ScheduledMinutes:  computed.ScheduledMinutes,
		ActualMinutes:     computed.ActualMinutes,
		LateMinutes:       computed.LateMinutes,
		EarlyLeaveMinutes: computed.EarlyLeaveMinutes,
		OvertimeMinutes:   computed.OvertimeMinutes,
		BreakMinutes:      computed.BreakMinutes,
		Status:            computed.Status,
		Notes:             notes,
	}

	stored, err := s.ledger.Upsert(ctx, record)
	if err != nil && errors.Is(err, appErrors.ErrPersistenceConflict) {
		s.logger.Warn("attendance upsert conflict, retrying once",
			zap.String("employee_id", punch.EmployeeID),
			zap.String("date", punch.Date.Format(models.DateLayout)))
		stored, err = s.ledger.Upsert(ctx, record)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// CorrectionEntry is one date inside a manual correction batch. Both clock
// values are required: a correction asserts the full day.
type CorrectionEntry struct {
	Date    string  `json:"date" validate:"required"`
	TimeIn  string  `json:"time_in" validate:"required,clock"`
	TimeOut string  `json:"time_out" validate:"required,clock"`
	Notes   *string `json:"notes"`
}

// CorrectionBatchRequest is the admin manual-correction payload.
type CorrectionBatchRequest struct {
	EmployeeID string            `json:"employee_id" validate:"required"`
	Records    []CorrectionEntry `json:"records" validate:"required,min=1,dive"`
}

// CorrectionResult reports the outcome for one date of the batch.
type CorrectionResult struct {
	Date    string                   `json:"date"`
	Success bool                     `json:"success"`
	Record  *models.AttendanceRecord `json:"record,omitempty"`
	Error   *appErrors.Error         `json:"error,omitempty"`
}

// CorrectBatch applies manual corrections date by date. Each date is
// independent: a failure is collected and the batch continues. Dates with
// no schedule are reported, never silently dropped.
func (s *AttendanceService) CorrectBatch(ctx context.Context, req CorrectionBatchRequest) ([]CorrectionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}

	results := make([]CorrectionResult, 0, len(req.Records))
	for _, entry := range req.Records {
		results = append(results, s.correctOne(ctx, req.EmployeeID, entry))
	}
	return results, nil
}

func (s *AttendanceService) correctOne(ctx context.Context, employeeID string, entry CorrectionEntry) CorrectionResult {
	result := CorrectionResult{Date: entry.Date}

	date, err := time.Parse(models.DateLayout, entry.Date)
	if err != nil {
		result.Error = appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
		return result
	}
	in, out := entry.TimeIn, entry.TimeOut
	punch := models.Punch{EmployeeID: employeeID, Date: date, TimeIn: &in, TimeOut: &out}

	stored, err := s.reconcileAndStore(ctx, punch, true, entry.Notes)
	if err != nil {
		result.Error = appErrors.FromError(err)
		return result
	}
	result.Success = true
	result.Record = stored
	if s.metrics != nil {
		s.metrics.IncPunch(string(models.AttendanceStatusManual))
	}
	return result
}

// Get returns the ledger row for one employee and date, or NotFound.
func (s *AttendanceService) Get(ctx context.Context, employeeID, date string) (*models.AttendanceRecord, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	record, err := s.ledger.Get(ctx, employeeID, d)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for that date")
	}
	return record, nil
}

// ListRequest filters ledger listings.
type ListRequest struct {
	EmployeeID string     `json:"employee_id"`
	Status     *string    `json:"status"`
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	SortBy     string     `json:"sort_by"`
	SortOrder  string     `json:"sort_order"`
}

// List returns paginated ledger rows.
func (s *AttendanceService) List(ctx context.Context, req ListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	var status *models.AttendanceStatus
	if req.Status != nil {
		st := models.AttendanceStatus(*req.Status)
		if !st.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
		status = &st
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.AttendanceFilter{
		EmployeeID: req.EmployeeID,
		Status:     status,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Page:       page,
		PageSize:   size,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	rows, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Summary aggregates an employee's ledger over a date range.
func (s *AttendanceService) Summary(ctx context.Context, employeeID, from, to string) (*models.AttendanceSummary, error) {
	fromDate, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	toDate, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
	}
	if toDate.Before(fromDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date precedes from date")
	}
	summary, err := s.ledger.Summary(ctx, employeeID, fromDate, toDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return summary, nil
}
