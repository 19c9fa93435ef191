package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
)

// ScheduleRepository persists schedule templates, their periods and
// employee assignments.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// PeriodsFor returns the active periods matching the date's weekday for the
// assignment covering that date, ordered ascending by start time. An empty
// result means the employee has no schedule that day, which is a valid
// outcome the caller must interpret.
func (r *ScheduleRepository) PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error) {
	weekday := models.WeekdayOf(date)
	query := `SELECT p.id, p.template_id, p.weekday, p.label, p.start_time, p.end_time, p.active, p.created_at
FROM schedule_periods p
JOIN employee_schedules es ON es.template_id = p.template_id
WHERE es.employee_id = $1
  AND es.effective_from <= $2
  AND (es.effective_to IS NULL OR es.effective_to >= $2)
  AND p.weekday = $3
  AND p.active
ORDER BY p.start_time ASC`
	var periods []models.SchedulePeriod
	if err := r.db.SelectContext(ctx, &periods, query, employeeID, date, int(weekday)); err != nil {
		return nil, fmt.Errorf("periods for employee: %w", err)
	}
	return periods, nil
}

// FindTemplateForEmployee resolves the template behind the assignment that is
// active today, if any.
func (r *ScheduleRepository) FindTemplateForEmployee(ctx context.Context, employeeID string, date time.Time) (*models.ScheduleTemplate, error) {
	query := `SELECT t.id, t.name, t.description, t.created_at, t.updated_at
FROM schedule_templates t
JOIN employee_schedules es ON es.template_id = t.id
WHERE es.employee_id = $1
  AND es.effective_from <= $2
  AND (es.effective_to IS NULL OR es.effective_to >= $2)`
	var template models.ScheduleTemplate
	if err := r.db.GetContext(ctx, &template, query, employeeID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find template for employee: %w", err)
	}
	return &template, nil
}

// TemplatePeriods lists every active period of a template ordered by
// weekday then start time, for timetable display.
func (r *ScheduleRepository) TemplatePeriods(ctx context.Context, templateID string) ([]models.SchedulePeriod, error) {
	query := `SELECT id, template_id, weekday, label, start_time, end_time, active, created_at
FROM schedule_periods
WHERE template_id = $1 AND active
ORDER BY weekday ASC, start_time ASC`
	var periods []models.SchedulePeriod
	if err := r.db.SelectContext(ctx, &periods, query, templateID); err != nil {
		return nil, fmt.Errorf("template periods: %w", err)
	}
	return periods, nil
}

// PeriodAssignmentsFor returns the descriptive class metadata attached to an
// employee's periods.
func (r *ScheduleRepository) PeriodAssignmentsFor(ctx context.Context, employeeID string) ([]models.PeriodAssignment, error) {
	query := `SELECT id, period_id, employee_id, subject_code, class_label, room, created_at
FROM period_assignments
WHERE employee_id = $1`
	var assignments []models.PeriodAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, employeeID); err != nil {
		return nil, fmt.Errorf("period assignments: %w", err)
	}
	return assignments, nil
}

// CreateTemplate inserts a template row together with its periods and an
// open-ended assignment for the employee, in one transaction.
func (r *ScheduleRepository) CreateTemplate(ctx context.Context, employeeID string, template *models.ScheduleTemplate, periods []models.SchedulePeriod, assignments []models.PeriodAssignment, effectiveFrom time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create template: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	template.CreatedAt = now
	template.UpdatedAt = now
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_templates (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		template.ID, template.Name, template.Description, template.CreatedAt, template.UpdatedAt); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	if err := insertPeriods(ctx, tx, template.ID, periods, assignments, employeeID, now); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO employee_schedules (id, employee_id, template_id, effective_from, effective_to, created_at)
VALUES ($1, $2, $3, $4, NULL, $5)`,
		uuid.NewString(), employeeID, template.ID, effectiveFrom, now); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create template: %w", err)
	}
	commit = true
	return nil
}

// ReplaceTemplatePeriods swaps a template's periods and period assignments
// for a new set. The template row and the employee_schedules linkage are
// preserved so historical bindings stay intact.
func (r *ScheduleRepository) ReplaceTemplatePeriods(ctx context.Context, templateID, employeeID string, periods []models.SchedulePeriod, assignments []models.PeriodAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace periods: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM period_assignments WHERE period_id IN (SELECT id FROM schedule_periods WHERE template_id = $1)`,
		templateID); err != nil {
		return fmt.Errorf("delete period assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_periods WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("delete periods: %w", err)
	}

	now := time.Now().UTC()
	if err := insertPeriods(ctx, tx, templateID, periods, assignments, employeeID, now); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE schedule_templates SET updated_at = $2 WHERE id = $1`, templateID, now); err != nil {
		return fmt.Errorf("touch template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace periods: %w", err)
	}
	commit = true
	return nil
}

func insertPeriods(ctx context.Context, tx *sqlx.Tx, templateID string, periods []models.SchedulePeriod, assignments []models.PeriodAssignment, employeeID string, now time.Time) error {
	assignmentsByIndex := make(map[int]models.PeriodAssignment, len(assignments))
	for i := range assignments {
		assignmentsByIndex[i] = assignments[i]
	}
	for i := range periods {
		p := &periods[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.TemplateID = templateID
		p.CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_periods (id, template_id, weekday, label, start_time, end_time, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.TemplateID, int(p.Weekday), p.Label, p.StartTime, p.EndTime, p.Active, p.CreatedAt); err != nil {
			return fmt.Errorf("insert period: %w", err)
		}
		if a, ok := assignmentsByIndex[i]; ok && a.SubjectCode != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO period_assignments (id, period_id, employee_id, subject_code, class_label, room, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.NewString(), p.ID, employeeID, a.SubjectCode, a.ClassLabel, a.Room, now); err != nil {
				return fmt.Errorf("insert period assignment: %w", err)
			}
		}
	}
	return nil
}

// AssignTemplate closes any open assignment and opens a new one, keeping at
// most one active assignment per employee.
func (r *ScheduleRepository) AssignTemplate(ctx context.Context, employeeID, templateID string, effectiveFrom time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign template: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	closedTo := effectiveFrom.AddDate(0, 0, -1)
	if _, err := tx.ExecContext(ctx,
		`UPDATE employee_schedules SET effective_to = $2 WHERE employee_id = $1 AND effective_to IS NULL`,
		employeeID, closedTo); err != nil {
		return fmt.Errorf("close open assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO employee_schedules (id, employee_id, template_id, effective_from, effective_to, created_at)
VALUES ($1, $2, $3, $4, NULL, $5)`,
		uuid.NewString(), employeeID, templateID, effectiveFrom, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign template: %w", err)
	}
	commit = true
	return nil
}
