package models

import "time"

// EmployeeKind distinguishes staff with fixed office hours from faculty with
// per-class period assignments.
type EmployeeKind string

const (
	EmployeeKindStaff   EmployeeKind = "staff"
	EmployeeKindFaculty EmployeeKind = "faculty"
)

// Employee represents a staff member tracked by the portal.
type Employee struct {
	ID         string       `db:"id" json:"id"`
	Number     string       `db:"number" json:"number"`
	FullName   string       `db:"full_name" json:"full_name"`
	Email      string       `db:"email" json:"email"`
	Department *string      `db:"department" json:"department,omitempty"`
	Position   *string      `db:"position" json:"position,omitempty"`
	Kind       EmployeeKind `db:"kind" json:"kind"`
	Active     bool         `db:"active" json:"active"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	Department string
	Kind       *EmployeeKind
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
