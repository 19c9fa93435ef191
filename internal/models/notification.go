package models

import "time"

// NotificationAudience selects who a notification is addressed to.
type NotificationAudience string

const (
	AudienceAdmin    NotificationAudience = "admin"
	AudienceEmployee NotificationAudience = "employee"
)

// NotificationType tags the leave lifecycle event that produced the row.
type NotificationType string

const (
	NotificationLeaveSubmitted NotificationType = "leave_submitted"
	NotificationLeaveApproved  NotificationType = "leave_approved"
	NotificationLeaveRejected  NotificationType = "leave_rejected"
)

// Notification is created as a side effect of leave state transitions and
// removed together with its originating request.
type Notification struct {
	ID             string               `db:"id" json:"id"`
	Audience       NotificationAudience `db:"audience" json:"audience"`
	EmployeeID     *string              `db:"employee_id" json:"employee_id,omitempty"`
	Type           NotificationType     `db:"type" json:"type"`
	Message        string               `db:"message" json:"message"`
	Read           bool                 `db:"read" json:"read"`
	LeaveRequestID string               `db:"leave_request_id" json:"leave_request_id"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
}
