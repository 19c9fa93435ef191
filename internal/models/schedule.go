package models

import "time"

// ScheduleTemplate is a reusable weekly schedule definition. The row is
// created the first time an employee's schedule is defined and survives
// period replacements so historical assignments stay linked.
type ScheduleTemplate struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SchedulePeriod is one contiguous scheduled block on a weekday. A template
// may carry several periods on the same weekday; within one weekday they are
// assumed sortable by start time, non-overlap is not enforced here.
type SchedulePeriod struct {
	ID         string    `db:"id" json:"id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	Weekday    Weekday   `db:"weekday" json:"weekday"`
	Label      string    `db:"label" json:"label"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EmployeeScheduleAssignment binds an employee to one template. At most one
// assignment per employee is active at any instant.
type EmployeeScheduleAssignment struct {
	ID            string     `db:"id" json:"id"`
	EmployeeID    string     `db:"employee_id" json:"employee_id"`
	TemplateID    string     `db:"template_id" json:"template_id"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// PeriodAssignment attaches descriptive class metadata to a period for a
// specific employee. Not used in time arithmetic.
type PeriodAssignment struct {
	ID         string    `db:"id" json:"id"`
	PeriodID   string    `db:"period_id" json:"period_id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	SubjectCode string   `db:"subject_code" json:"subject_code"`
	ClassLabel *string   `db:"class_label" json:"class_label,omitempty"`
	Room       *string   `db:"room" json:"room,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PeriodInput is an unvalidated period definition supplied by callers.
type PeriodInput struct {
	Weekday     int     `json:"weekday" validate:"min=0,max=6"`
	Label       string  `json:"label" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required,clock"`
	EndTime     string  `json:"end_time" validate:"required,clock"`
	SubjectCode *string `json:"subject_code,omitempty"`
	ClassLabel  *string `json:"class_label,omitempty"`
	Room        *string `json:"room,omitempty"`
}
