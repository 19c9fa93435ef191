package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceColumns() []string {
	return []string{
		"id", "employee_id", "date", "time_in", "time_out",
		"scheduled_minutes", "actual_minutes", "late_minutes",
		"early_leave_minutes", "overtime_minutes", "break_minutes",
		"status", "notes", "computed_at", "created_at", "updated_at",
	}
}

func attendanceRow(id, employeeID string, date time.Time, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(attendanceColumns()).
		AddRow(id, employeeID, date, "08:00", "17:00", 540, 540, 0, 0, 0, 0, status, nil, now, now, now)
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(attendanceRow("rec-1", "emp-1", date, "complete"))

	in, out := "08:00", "17:00"
	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		EmployeeID:       "emp-1",
		Date:             date,
		TimeIn:           &in,
		TimeOut:          &out,
		ScheduledMinutes: 540,
		ActualMinutes:    540,
		Status:           models.AttendanceStatusComplete,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", stored.ID)
	assert.Equal(t, models.AttendanceStatusComplete, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnError(&pq.Error{Code: pgUniqueViolation})

	_, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		EmployeeID: "emp-1",
		Date:       time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Status:     models.AttendanceStatusComplete,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistenceConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM attendance_records").
		WithArgs("emp-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(attendanceColumns()))

	record, err := repo.Get(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM attendance_records WHERE 1=1 AND employee_id = \\$1").
		WithArgs("emp-1").
		WillReturnRows(attendanceRow("rec-1", "emp-1", date, "complete"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM attendance_records").
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), models.AttendanceFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"status", "cnt", "late_total", "overtime_total", "scheduled_total", "actual_total"}).
		AddRow("complete", 18, 45, 60, 9720, 9735).
		AddRow("absent", 1, 0, 0, 540, 0).
		AddRow("on_leave", 2, 0, 0, 1080, 0)
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS cnt").
		WithArgs("emp-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), "emp-1", time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 18, summary.Complete)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 2, summary.OnLeave)
	assert.Equal(t, 21, summary.Total)
	assert.Equal(t, 45, summary.LateMinutes)
	assert.Equal(t, 60, summary.OvertimeMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: pgUniqueViolation}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
}
