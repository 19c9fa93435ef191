package models

import "time"

// AttendanceStatus enumerates ledger record states.
type AttendanceStatus string

const (
	AttendanceStatusComplete   AttendanceStatus = "complete"
	AttendanceStatusIncomplete AttendanceStatus = "incomplete"
	AttendanceStatusAbsent     AttendanceStatus = "absent"
	AttendanceStatusManual     AttendanceStatus = "manual"
	AttendanceStatusOnLeave    AttendanceStatus = "on_leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusComplete, AttendanceStatusIncomplete, AttendanceStatusAbsent, AttendanceStatusManual, AttendanceStatusOnLeave:
		return true
	default:
		return false
	}
}

// Punch is a raw time-in/time-out capture for one employee on one date.
// Either clock value may be absent.
type Punch struct {
	EmployeeID string
	Date       time.Time
	TimeIn     *string
	TimeOut    *string
}

// AttendanceRecord is the ledger's unit: one row per (employee, date).
type AttendanceRecord struct {
	ID                string           `db:"id" json:"id"`
	EmployeeID        string           `db:"employee_id" json:"employee_id"`
	Date              time.Time        `db:"date" json:"date"`
	TimeIn            *string          `db:"time_in" json:"time_in,omitempty"`
	TimeOut           *string          `db:"time_out" json:"time_out,omitempty"`
	ScheduledMinutes  int              `db:"scheduled_minutes" json:"scheduled_minutes"`
	ActualMinutes     int              `db:"actual_minutes" json:"actual_minutes"`
	LateMinutes       int              `db:"late_minutes" json:"late_minutes"`
	EarlyLeaveMinutes int              `db:"early_leave_minutes" json:"early_leave_minutes"`
	OvertimeMinutes   int              `db:"overtime_minutes" json:"overtime_minutes"`
	BreakMinutes      int              `db:"break_minutes" json:"break_minutes"`
	Status            AttendanceStatus `db:"status" json:"status"`
	Notes             *string          `db:"notes" json:"notes,omitempty"`
	ComputedAt        time.Time        `db:"computed_at" json:"computed_at"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes ledger listing queries.
type AttendanceFilter struct {
	EmployeeID string
	Status     *AttendanceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AttendanceSummary aggregates a date range for one employee.
type AttendanceSummary struct {
	Complete         int `json:"complete"`
	Incomplete       int `json:"incomplete"`
	Absent           int `json:"absent"`
	Manual           int `json:"manual"`
	OnLeave          int `json:"on_leave"`
	Total            int `json:"total"`
	LateMinutes      int `json:"late_minutes"`
	OvertimeMinutes  int `json:"overtime_minutes"`
	ScheduledMinutes int `json:"scheduled_minutes"`
	ActualMinutes    int `json:"actual_minutes"`
}
