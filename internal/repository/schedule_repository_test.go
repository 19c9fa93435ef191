package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
)

func periodColumns() []string {
	return []string{"id", "template_id", "weekday", "label", "start_time", "end_time", "active", "created_at"}
}

func TestScheduleRepositoryPeriodsForMapsWeekday(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	// 2025-06-04 is a Wednesday: weekday 2 in the Monday-first numbering.
	date := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(periodColumns()).
		AddRow("p1", "tpl-1", 2, "Morning", "08:00", "12:00", true, time.Now()).
		AddRow("p2", "tpl-1", 2, "Afternoon", "13:00", "17:00", true, time.Now())
	mock.ExpectQuery("SELECT p.id, p.template_id, p.weekday").
		WithArgs("emp-1", date, 2).
		WillReturnRows(rows)

	periods, err := repo.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, models.Wednesday, periods[0].Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryPeriodsForEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT p.id, p.template_id, p.weekday").
		WithArgs("emp-1", date, 6).
		WillReturnRows(sqlmock.NewRows(periodColumns()))

	periods, err := repo.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	assert.Empty(t, periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindTemplateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("SELECT t.id, t.name, t.description").
		WithArgs("emp-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}))

	template, err := repo.FindTemplateForEmployee(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, template)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateTemplate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedule_templates").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO schedule_periods").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO period_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO employee_schedules").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	template := &models.ScheduleTemplate{Name: "Standard week"}
	periods := []models.SchedulePeriod{
		{Weekday: models.Monday, Label: "Morning", StartTime: "08:00", EndTime: "12:00", Active: true},
	}
	assignments := []models.PeriodAssignment{{SubjectCode: "OPS"}}

	err := repo.CreateTemplate(context.Background(), "emp-1", template, periods, assignments,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, template.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceTemplatePeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM period_assignments").
		WithArgs("tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM schedule_periods").
		WithArgs("tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO schedule_periods").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedule_templates SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	periods := []models.SchedulePeriod{
		{Weekday: models.Monday, Label: "Day", StartTime: "09:00", EndTime: "17:00", Active: true},
	}
	err := repo.ReplaceTemplatePeriods(context.Background(), "tpl-1", "emp-1", periods, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryAssignTemplateClosesOpenAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE employee_schedules SET effective_to").
		WithArgs("emp-1", from.AddDate(0, 0, -1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO employee_schedules").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AssignTemplate(context.Background(), "emp-1", "tpl-2", from))
	assert.NoError(t, mock.ExpectationsWereMet())
}
