package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type mockPeriodSource struct {
	periods map[models.Weekday][]models.SchedulePeriod
	err     error
}

func (m *mockPeriodSource) PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.periods[models.WeekdayOf(date)], nil
}

type mockLedger struct {
	records       map[string]*models.AttendanceRecord
	upsertCalls   int
	conflictsLeft int
	upsertErr     error
	listResult    []models.AttendanceRecord
	listTotal     int
	summary       *models.AttendanceSummary
}

func ledgerKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(models.DateLayout)
}

func (m *mockLedger) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	m.upsertCalls++
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return nil, appErrors.Clone(appErrors.ErrPersistenceConflict, "")
	}
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if m.records == nil {
		m.records = make(map[string]*models.AttendanceRecord)
	}
	cp := *record
	cp.ID = "rec-1"
	m.records[ledgerKey(record.EmployeeID, record.Date)] = &cp
	return &cp, nil
}

func (m *mockLedger) Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	return m.records[ledgerKey(employeeID, date)], nil
}

func (m *mockLedger) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockLedger) Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error) {
	return m.summary, nil
}

type mockPunchCounter struct {
	statuses []string
}

func (m *mockPunchCounter) IncPunch(status string) {
	m.statuses = append(m.statuses, status)
}

func mondaySchedule() *mockPeriodSource {
	return &mockPeriodSource{periods: map[models.Weekday][]models.SchedulePeriod{
		models.Monday: {
			{ID: "p1", Weekday: models.Monday, Label: "Shift", StartTime: "08:00", EndTime: "17:00", Active: true},
		},
	}}
}

func TestRecordPunchStoresReconciledRow(t *testing.T) {
	ledger := &mockLedger{}
	counter := &mockPunchCounter{}
	svc := NewAttendanceService(mondaySchedule(), ledger, counter, nil, nil)

	record, err := svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "2025-06-02",
		TimeIn:     strPtr("08:15"),
		TimeOut:    strPtr("17:00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.AttendanceStatusComplete, record.Status)
	assert.Equal(t, 15, record.LateMinutes)
	assert.Equal(t, 540, record.ScheduledMinutes)
	assert.Equal(t, []string{"complete"}, counter.statuses)
}

func TestRecordPunchRetriesConflictOnce(t *testing.T) {
	ledger := &mockLedger{conflictsLeft: 1}
	svc := NewAttendanceService(mondaySchedule(), ledger, nil, nil, nil)

	_, err := svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "2025-06-02",
		TimeIn:     strPtr("08:00"),
		TimeOut:    strPtr("17:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.upsertCalls)
}

func TestRecordPunchSurfacesRepeatedConflict(t *testing.T) {
	ledger := &mockLedger{conflictsLeft: 2}
	svc := NewAttendanceService(mondaySchedule(), ledger, nil, nil, nil)

	_, err := svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "2025-06-02",
		TimeIn:     strPtr("08:00"),
		TimeOut:    strPtr("17:00"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistenceConflict)
	assert.Equal(t, 2, ledger.upsertCalls)
}

func TestRecordPunchNoScheduleDay(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	// 2025-06-01 is a Sunday with no periods.
	_, err := svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "2025-06-01",
		TimeIn:     strPtr("08:00"),
		TimeOut:    strPtr("17:00"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNoScheduleForDay)
}

func TestRecordPunchValidation(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	_, err := svc.RecordPunch(context.Background(), PunchRequest{Date: "2025-06-02"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "02-06-2025",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.RecordPunch(context.Background(), PunchRequest{
		EmployeeID: "emp-1",
		Date:       "2025-06-02",
		TimeIn:     strPtr("8 o'clock"),
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCorrectBatchIndependentDates(t *testing.T) {
	ledger := &mockLedger{}
	svc := NewAttendanceService(mondaySchedule(), ledger, nil, nil, nil)

	results, err := svc.CorrectBatch(context.Background(), CorrectionBatchRequest{
		EmployeeID: "emp-1",
		Records: []CorrectionEntry{
			{Date: "2025-06-02", TimeIn: "08:00", TimeOut: "17:00"},
			{Date: "2025-06-01", TimeIn: "08:00", TimeOut: "17:00"}, // Sunday, no schedule
			{Date: "2025-06-09", TimeIn: "09:00", TimeOut: "16:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, models.AttendanceStatusManual, results[0].Record.Status)

	assert.False(t, results[1].Success)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, appErrors.ErrNoScheduleForDay.Code, results[1].Error.Code)

	assert.True(t, results[2].Success)
	assert.Equal(t, 60, results[2].Record.LateMinutes)
	assert.Equal(t, 60, results[2].Record.EarlyLeaveMinutes)
}

func TestCorrectBatchRequiresRecords(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	_, err := svc.CorrectBatch(context.Background(), CorrectionBatchRequest{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGetNotFound(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "emp-1", "2025-06-02")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	_, _, err := svc.List(context.Background(), ListRequest{Status: strPtr("vacationing")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestListDefaultsPagination(t *testing.T) {
	ledger := &mockLedger{listTotal: 3}
	svc := NewAttendanceService(mondaySchedule(), ledger, nil, nil, nil)

	_, pagination, err := svc.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 3, pagination.TotalCount)
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := NewAttendanceService(mondaySchedule(), &mockLedger{}, nil, nil, nil)

	_, err := svc.Summary(context.Background(), "emp-1", "2025-06-30", "2025-06-01")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
