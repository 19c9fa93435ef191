package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type mockScheduleStore struct {
	template        *models.ScheduleTemplate
	periods         []models.SchedulePeriod
	templatePeriods []models.SchedulePeriod
	assignments     []models.PeriodAssignment
	created         int
	replaced        int
	assigned        int
	periodCalls     int
}

func (m *mockScheduleStore) PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error) {
	m.periodCalls++
	return m.periods, nil
}

func (m *mockScheduleStore) FindTemplateForEmployee(ctx context.Context, employeeID string, date time.Time) (*models.ScheduleTemplate, error) {
	return m.template, nil
}

func (m *mockScheduleStore) TemplatePeriods(ctx context.Context, templateID string) ([]models.SchedulePeriod, error) {
	return m.templatePeriods, nil
}

func (m *mockScheduleStore) PeriodAssignmentsFor(ctx context.Context, employeeID string) ([]models.PeriodAssignment, error) {
	return m.assignments, nil
}

func (m *mockScheduleStore) CreateTemplate(ctx context.Context, employeeID string, template *models.ScheduleTemplate, periods []models.SchedulePeriod, assignments []models.PeriodAssignment, effectiveFrom time.Time) error {
	m.created++
	template.ID = "tpl-1"
	return nil
}

func (m *mockScheduleStore) ReplaceTemplatePeriods(ctx context.Context, templateID, employeeID string, periods []models.SchedulePeriod, assignments []models.PeriodAssignment) error {
	m.replaced++
	return nil
}

func (m *mockScheduleStore) AssignTemplate(ctx context.Context, employeeID, templateID string, effectiveFrom time.Time) error {
	m.assigned++
	return nil
}

// memoryCache is an in-process stand-in for the redis-backed repository.
type memoryCache struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
	sets     int
	gets     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string), counters: make(map[string]int64)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.values[key] = value
	return nil
}

func (c *memoryCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	// Mirror redis INCR semantics: the key now holds the counter as a string.
	c.values[key] = strconv.FormatInt(c.counters[key], 10)
	return c.counters[key], nil
}

type lookupRecorder struct {
	hits   int
	misses int
}

func (r *lookupRecorder) RecordCacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func defineRequest() DefineScheduleRequest {
	return DefineScheduleRequest{
		EmployeeID:    "emp-1",
		Name:          "Standard week",
		EffectiveFrom: "2025-06-02",
		Periods: []models.PeriodInput{
			{Weekday: 0, Label: "Morning", StartTime: "08:00", EndTime: "12:00"},
			{Weekday: 0, Label: "Afternoon", StartTime: "13:00", EndTime: "17:00"},
		},
	}
}

func TestDefineScheduleCreatesTemplate(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewScheduleService(store, nil, 0, nil, nil)

	template, err := svc.DefineSchedule(context.Background(), defineRequest())
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", template.ID)
	assert.Equal(t, 1, store.created)
	assert.Equal(t, 0, store.replaced)
}

func TestDefineScheduleReplacesExistingPeriods(t *testing.T) {
	store := &mockScheduleStore{template: &models.ScheduleTemplate{ID: "tpl-9", Name: "Old"}}
	svc := NewScheduleService(store, nil, 0, nil, nil)

	template, err := svc.DefineSchedule(context.Background(), defineRequest())
	require.NoError(t, err)
	assert.Equal(t, "tpl-9", template.ID)
	assert.Equal(t, 0, store.created)
	assert.Equal(t, 1, store.replaced)
}

func TestDefineScheduleRejectsInvertedPeriod(t *testing.T) {
	svc := NewScheduleService(&mockScheduleStore{}, nil, 0, nil, nil)

	req := defineRequest()
	req.Periods[0].StartTime = "12:00"
	req.Periods[0].EndTime = "08:00"
	_, err := svc.DefineSchedule(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPeriodsForCachesSecondLookup(t *testing.T) {
	store := &mockScheduleStore{periods: []models.SchedulePeriod{
		{ID: "p1", Weekday: models.Monday, Label: "Shift", StartTime: "08:00", EndTime: "17:00", Active: true},
	}}
	cache := newMemoryCache()
	recorder := &lookupRecorder{}
	svc := NewScheduleService(store, cache, time.Minute, nil, nil)
	svc.SetMetrics(recorder)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	first, err := svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, store.periodCalls)
	assert.Equal(t, 1, recorder.misses)
	assert.Equal(t, 1, recorder.hits)
}

func TestDefineScheduleInvalidatesCache(t *testing.T) {
	store := &mockScheduleStore{periods: []models.SchedulePeriod{
		{ID: "p1", Weekday: models.Monday, Label: "Shift", StartTime: "08:00", EndTime: "17:00", Active: true},
	}}
	cache := newMemoryCache()
	svc := NewScheduleService(store, cache, time.Minute, nil, nil)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	_, err := svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)

	// Redefining bumps the per-employee version so old entries go stale.
	_, err = svc.DefineSchedule(context.Background(), defineRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.counters["schedule:ver:emp-1"])

	_, err = svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	assert.Equal(t, 2, store.periodCalls)
}

func TestPeriodsForWithoutCacheHitsStore(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewScheduleService(store, nil, 0, nil, nil)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	_, err = svc.PeriodsFor(context.Background(), "emp-1", date)
	require.NoError(t, err)
	assert.Equal(t, 2, store.periodCalls)
}

func TestWeekTimetableMergesAssignments(t *testing.T) {
	room := "B12"
	store := &mockScheduleStore{
		template: &models.ScheduleTemplate{ID: "tpl-1", Name: "Standard"},
		templatePeriods: []models.SchedulePeriod{
			{ID: "p1", Weekday: models.Monday, Label: "Morning", StartTime: "08:00", EndTime: "12:00"},
			{ID: "p2", Weekday: models.Tuesday, Label: "Morning", StartTime: "08:00", EndTime: "12:00"},
		},
		assignments: []models.PeriodAssignment{
			{PeriodID: "p1", SubjectCode: "OPS", Room: &room},
		},
	}
	svc := NewScheduleService(store, nil, 0, nil, nil)

	entries, err := svc.WeekTimetable(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NotNil(t, entries[0].SubjectCode)
	assert.Equal(t, "OPS", *entries[0].SubjectCode)
	assert.Equal(t, &room, entries[0].Room)
	assert.Nil(t, entries[1].SubjectCode)
}

func TestWeekTimetableNoTemplate(t *testing.T) {
	svc := NewScheduleService(&mockScheduleStore{}, nil, 0, nil, nil)

	_, err := svc.WeekTimetable(context.Background(), "emp-1", time.Now())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAssignTemplateValidatesInput(t *testing.T) {
	store := &mockScheduleStore{}
	svc := NewScheduleService(store, nil, 0, nil, nil)

	err := svc.AssignTemplate(context.Background(), "", "tpl-1", "2025-06-02")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = svc.AssignTemplate(context.Background(), "emp-1", "tpl-1", "June 2nd")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = svc.AssignTemplate(context.Background(), "emp-1", "tpl-1", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, 1, store.assigned)
}
