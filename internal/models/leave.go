package models

import "time"

// LeaveStatus captures the leave request lifecycle.
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "pending"
	LeaveStatusApproved  LeaveStatus = "approved"
	LeaveStatusRejected  LeaveStatus = "rejected"
	LeaveStatusCancelled LeaveStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected, LeaveStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the one-way lifecycle: pending may be approved or
// rejected; pending and approved may be cancelled; rejected and cancelled
// are terminal.
func (s LeaveStatus) CanTransitionTo(next LeaveStatus) bool {
	switch s {
	case LeaveStatusPending:
		return next == LeaveStatusApproved || next == LeaveStatusRejected || next == LeaveStatusCancelled
	case LeaveStatusApproved:
		return next == LeaveStatusCancelled
	default:
		return false
	}
}

// LeaveType enumerates supported leave categories.
type LeaveType string

const (
	LeaveTypeAnnual    LeaveType = "annual"
	LeaveTypeSick      LeaveType = "sick"
	LeaveTypePersonal  LeaveType = "personal"
	LeaveTypeMaternity LeaveType = "maternity"
	LeaveTypeUnpaid    LeaveType = "unpaid"
)

// Valid returns true for supported leave types.
func (t LeaveType) Valid() bool {
	switch t {
	case LeaveTypeAnnual, LeaveTypeSick, LeaveTypePersonal, LeaveTypeMaternity, LeaveTypeUnpaid:
		return true
	default:
		return false
	}
}

// LeaveRequest is a dated leave application with its workflow status.
type LeaveRequest struct {
	ID         string      `db:"id" json:"id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	Type       LeaveType   `db:"leave_type" json:"leave_type"`
	StartDate  time.Time   `db:"start_date" json:"start_date"`
	EndDate    time.Time   `db:"end_date" json:"end_date"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	DecidedBy  *string     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt  *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// Days returns the inclusive number of calendar days the request spans.
func (r *LeaveRequest) Days() int {
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// LeaveFilter scopes leave request listings.
type LeaveFilter struct {
	EmployeeID string
	Status     *LeaveStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
