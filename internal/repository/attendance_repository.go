package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

const pgUniqueViolation = "23505"

// AttendanceRepository is the ledger store: one row per (employee, date),
// enforced by a unique constraint and written through atomic upserts.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or updates the ledger row for (employee, date) in a single
// statement. Serialization of concurrent writers happens at the unique
// constraint, not in application code; a surfaced unique violation is mapped
// to PersistenceConflict for the caller to retry.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ComputedAt.IsZero() {
		record.ComputedAt = now
	}
	query := `INSERT INTO attendance_records
(id, employee_id, date, time_in, time_out, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, notes, computed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
ON CONFLICT (employee_id, date)
DO UPDATE SET time_in = EXCLUDED.time_in,
	time_out = EXCLUDED.time_out,
	scheduled_minutes = EXCLUDED.scheduled_minutes,
	actual_minutes = EXCLUDED.actual_minutes,
	late_minutes = EXCLUDED.late_minutes,
	early_leave_minutes = EXCLUDED.early_leave_minutes,
	overtime_minutes = EXCLUDED.overtime_minutes,
	break_minutes = EXCLUDED.break_minutes,
	status = EXCLUDED.status,
	notes = EXCLUDED.notes,
	computed_at = EXCLUDED.computed_at,
	updated_at = EXCLUDED.updated_at
RETURNING id, employee_id, date, time_in, time_out, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, notes, computed_at, created_at, updated_at`
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.EmployeeID, record.Date, record.TimeIn, record.TimeOut,
		record.ScheduledMinutes, record.ActualMinutes, record.LateMinutes,
		record.EarlyLeaveMinutes, record.OvertimeMinutes, record.BreakMinutes,
		record.Status, record.Notes, record.ComputedAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistenceConflict.Code, appErrors.ErrPersistenceConflict.Status, "concurrent attendance write")
		}
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// Get fetches the ledger row for (employee, date) or nil when absent.
func (r *AttendanceRepository) Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	query := `SELECT id, employee_id, date, time_in, time_out, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, notes, computed_at, created_at, updated_at
FROM attendance_records
WHERE employee_id = $1 AND date = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, employeeID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return &record, nil
}

// List returns ledger rows matching the filter with pagination.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "date",
		"status":     "status",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, employee_id, date, time_in, time_out, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, notes, computed_at, created_at, updated_at
FROM attendance_records WHERE %s
ORDER BY %s %s
LIMIT %d OFFSET %d`, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// RangeRows returns an employee's ledger rows over a date range ordered by
// date, for report export.
func (r *AttendanceRepository) RangeRows(ctx context.Context, employeeID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT id, employee_id, date, time_in, time_out, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, notes, computed_at, created_at, updated_at
FROM attendance_records
WHERE employee_id = $1 AND date >= $2 AND date <= $3
ORDER BY date ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("attendance range rows: %w", err)
	}
	return rows, nil
}

// Summary aggregates status counts and minute totals for an employee over a
// date range.
func (r *AttendanceRepository) Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error) {
	query := `SELECT status, COUNT(*) AS cnt,
	COALESCE(SUM(late_minutes), 0) AS late_total,
	COALESCE(SUM(overtime_minutes), 0) AS overtime_total,
	COALESCE(SUM(scheduled_minutes), 0) AS scheduled_total,
	COALESCE(SUM(actual_minutes), 0) AS actual_total
FROM attendance_records
WHERE employee_id = $1 AND date >= $2 AND date <= $3
GROUP BY status`
	rows := []struct {
		Status         string `db:"status"`
		Count          int    `db:"cnt"`
		LateTotal      int    `db:"late_total"`
		OvertimeTotal  int    `db:"overtime_total"`
		ScheduledTotal int    `db:"scheduled_total"`
		ActualTotal    int    `db:"actual_total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.AttendanceStatusComplete:
			summary.Complete += row.Count
		case models.AttendanceStatusIncomplete:
			summary.Incomplete += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		case models.AttendanceStatusManual:
			summary.Manual += row.Count
		case models.AttendanceStatusOnLeave:
			summary.OnLeave += row.Count
		}
		summary.Total += row.Count
		summary.LateMinutes += row.LateTotal
		summary.OvertimeMinutes += row.OvertimeTotal
		summary.ScheduledMinutes += row.ScheduledTotal
		summary.ActualMinutes += row.ActualTotal
	}
	return summary, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}
