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

	"github.com/staffly-dev/hr-attendance-api/internal/models"
)

// LeaveRepository persists leave requests and performs the ledger overlay
// that approval and cancellation drive. Range mutations run inside one
// transaction so a partial overlay is never observable.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new request.
func (r *LeaveRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	query := `INSERT INTO leave_requests (id, employee_id, leave_type, start_date, end_date, reason, status, decided_by, decided_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		req.ID, req.EmployeeID, req.Type, req.StartDate, req.EndDate, req.Reason,
		req.Status, req.DecidedBy, req.DecidedAt, req.CreatedAt, req.UpdatedAt); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// GetByID fetches a request or nil when missing.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := `SELECT id, employee_id, leave_type, start_date, end_date, reason, status, decided_by, decided_at, created_at, updated_at
FROM leave_requests WHERE id = $1`
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
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
		where = append(where, fmt.Sprintf("end_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, employee_id, leave_type, start_date, end_date, reason, status, decided_by, decided_at, created_at, updated_at
FROM leave_requests WHERE %s
ORDER BY created_at DESC
LIMIT %d OFFSET %d`, whereClause, size, offset)
	var rows []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leave_requests WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return rows, total, nil
}

// CountOverlapping counts pending or approved requests for the employee
// whose range intersects [start, end] inclusively in both directions.
func (r *LeaveRepository) CountOverlapping(ctx context.Context, employeeID string, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM leave_requests
WHERE employee_id = $1
  AND status IN ('pending', 'approved')
  AND start_date <= $3
  AND end_date >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, employeeID, start, end); err != nil {
		return 0, fmt.Errorf("count overlapping leave: %w", err)
	}
	return count, nil
}

// ApproveWithOverlay flips the request to approved and upserts every date in
// [start, end] to on_leave in the same transaction. Existing rows lose their
// prior status and punches are preserved; missing rows are created bare.
func (r *LeaveRepository) ApproveWithOverlay(ctx context.Context, req *models.LeaveRequest, decidedBy string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve leave: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE leave_requests SET status = 'approved', decided_by = $2, decided_at = $3, updated_at = $3
WHERE id = $1 AND status = 'pending'`,
		req.ID, decidedBy, now)
	if err != nil {
		return fmt.Errorf("approve leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve leave request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	overlay := `INSERT INTO attendance_records
(id, employee_id, date, scheduled_minutes, actual_minutes, late_minutes, early_leave_minutes, overtime_minutes, break_minutes, status, computed_at, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, 0, 0, 0, 0, 'on_leave', $4, $4, $4)
ON CONFLICT (employee_id, date)
DO UPDATE SET status = 'on_leave', computed_at = EXCLUDED.computed_at, updated_at = EXCLUDED.updated_at`
	for d := req.StartDate; !d.After(req.EndDate); d = d.AddDate(0, 0, 1) {
		if _, err := tx.ExecContext(ctx, overlay, uuid.NewString(), req.EmployeeID, d, now); err != nil {
			return fmt.Errorf("overlay leave date %s: %w", d.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve leave: %w", err)
	}
	commit = true
	req.Status = models.LeaveStatusApproved
	req.DecidedBy = &decidedBy
	req.DecidedAt = &now
	return nil
}

// Reject flips a pending request to rejected and appends the reviewer's
// reason. The ledger is untouched.
func (r *LeaveRepository) Reject(ctx context.Context, id, decidedBy, reason string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE leave_requests
SET status = 'rejected',
	reason = CASE WHEN $3 = '' THEN reason ELSE reason || E'\n[rejected] ' || $3 END,
	decided_by = $2, decided_at = $4, updated_at = $4
WHERE id = $1 AND status = 'pending'`,
		id, decidedBy, reason, now)
	if err != nil {
		return fmt.Errorf("reject leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject leave request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelWithRevert removes the request and its notifications. When the
// request was approved, every date in range still marked on_leave is
// reverted to absent with punches cleared; rows overwritten by something
// else in the meantime are left alone. All of it happens in one transaction.
func (r *LeaveRepository) CancelWithRevert(ctx context.Context, req *models.LeaveRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel leave: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if req.Status == models.LeaveStatusApproved {
		if _, err := tx.ExecContext(ctx,
			`UPDATE attendance_records
SET status = 'absent', time_in = NULL, time_out = NULL, actual_minutes = 0,
	late_minutes = 0, early_leave_minutes = 0, overtime_minutes = 0,
	computed_at = $4, updated_at = $4
WHERE employee_id = $1 AND date >= $2 AND date <= $3 AND status = 'on_leave'`,
			req.EmployeeID, req.StartDate, req.EndDate, now); err != nil {
			return fmt.Errorf("revert leave overlay: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE leave_request_id = $1`, req.ID); err != nil {
		return fmt.Errorf("delete leave notifications: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM leave_requests WHERE id = $1 AND status IN ('pending', 'approved')`, req.ID)
	if err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel leave: %w", err)
	}
	commit = true
	return nil
}
