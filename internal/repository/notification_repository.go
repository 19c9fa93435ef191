package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
)

// NotificationRepository persists leave lifecycle notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	query := `INSERT INTO notifications (id, audience, employee_id, type, message, read, leave_request_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		n.ID, n.Audience, n.EmployeeID, n.Type, n.Message, n.Read, n.LeaveRequestID, n.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForAdmin returns admin-audience notifications, unread first.
func (r *NotificationRepository) ListForAdmin(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, audience, employee_id, type, message, read, leave_request_id, created_at
FROM notifications
WHERE audience = 'admin'
ORDER BY read ASC, created_at DESC
LIMIT $1`
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list admin notifications: %w", err)
	}
	return rows, nil
}

// ListForEmployee returns notifications addressed to one employee.
func (r *NotificationRepository) ListForEmployee(ctx context.Context, employeeID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, audience, employee_id, type, message, read, leave_request_id, created_at
FROM notifications
WHERE audience = 'employee' AND employee_id = $1
ORDER BY read ASC, created_at DESC
LIMIT $2`
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, limit); err != nil {
		return nil, fmt.Errorf("list employee notifications: %w", err)
	}
	return rows, nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// DeleteForLeaveRequest removes every notification tied to a request.
func (r *NotificationRepository) DeleteForLeaveRequest(ctx context.Context, leaveRequestID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE leave_request_id = $1`, leaveRequestID); err != nil {
		return fmt.Errorf("delete notifications for leave request: %w", err)
	}
	return nil
}
