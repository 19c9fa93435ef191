package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type schedulePeriodStore interface {
	PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error)
	FindTemplateForEmployee(ctx context.Context, employeeID string, date time.Time) (*models.ScheduleTemplate, error)
	TemplatePeriods(ctx context.Context, templateID string) ([]models.SchedulePeriod, error)
	PeriodAssignmentsFor(ctx context.Context, employeeID string) ([]models.PeriodAssignment, error)
	CreateTemplate(ctx context.Context, employeeID string, template *models.ScheduleTemplate, periods []models.SchedulePeriod, assignments []models.PeriodAssignment, effectiveFrom time.Time) error
	ReplaceTemplatePeriods(ctx context.Context, templateID, employeeID string, periods []models.SchedulePeriod, assignments []models.PeriodAssignment) error
	AssignTemplate(ctx context.Context, employeeID, templateID string, effectiveFrom time.Time) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type cacheMetrics interface {
	RecordCacheLookup(hit bool)
}

// ScheduleService is the schedule store: weekly templates, their periods
// and the employee assignment that selects them per date.
type ScheduleService struct {
	repo      schedulePeriodStore
	cache     scheduleCache
	cacheTTL  time.Duration
	metrics   cacheMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// SetMetrics attaches an optional cache instrumentation sink.
func (s *ScheduleService) SetMetrics(m cacheMetrics) {
	s.metrics = m
}

// NewScheduleService constructs the service. Cache is optional; without it
// every lookup hits the database.
func NewScheduleService(repo schedulePeriodStore, cache scheduleCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	registerClockValidation(validate)
	return &ScheduleService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func registerClockValidation(v *validator.Validate) {
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.MinuteOfDay(fl.Field().String())
		return err == nil
	})
}

// DefineScheduleRequest creates or replaces an employee's weekly schedule.
type DefineScheduleRequest struct {
	EmployeeID    string               `json:"employee_id" validate:"required"`
	Name          string               `json:"name" validate:"required"`
	Description   *string              `json:"description"`
	EffectiveFrom string               `json:"effective_from" validate:"required"`
	Periods       []models.PeriodInput `json:"periods" validate:"required,min=1,dive"`
}

// DefineSchedule creates a template on first definition and replaces its
// periods on subsequent edits, keeping the template row and assignment
// linkage so historical schedule bindings are not orphaned.
func (s *ScheduleService) DefineSchedule(ctx context.Context, req DefineScheduleRequest) (*models.ScheduleTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	effectiveFrom, err := time.Parse(models.DateLayout, req.EffectiveFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from, expected YYYY-MM-DD")
	}

	periods := make([]models.SchedulePeriod, len(req.Periods))
	assignments := make([]models.PeriodAssignment, len(req.Periods))
	for i, in := range req.Periods {
		startMin, err := models.MinuteOfDay(in.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period start time")
		}
		endMin, err := models.MinuteOfDay(in.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period end time")
		}
		if endMin <= startMin {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %q ends before it starts", in.Label))
		}
		periods[i] = models.SchedulePeriod{
			Weekday:   models.Weekday(in.Weekday),
			Label:     in.Label,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Active:    true,
		}
		if in.SubjectCode != nil && *in.SubjectCode != "" {
			assignments[i] = models.PeriodAssignment{
				SubjectCode: *in.SubjectCode,
				ClassLabel:  in.ClassLabel,
				Room:        in.Room,
			}
		}
	}

	existing, err := s.repo.FindTemplateForEmployee(ctx, req.EmployeeID, effectiveFrom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current schedule")
	}

	if existing != nil {
		if err := s.repo.ReplaceTemplatePeriods(ctx, existing.ID, req.EmployeeID, periods, assignments); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedule periods")
		}
		s.bumpVersion(ctx, req.EmployeeID)
		return existing, nil
	}

	template := &models.ScheduleTemplate{Name: req.Name, Description: req.Description}
	if err := s.repo.CreateTemplate(ctx, req.EmployeeID, template, periods, assignments, effectiveFrom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.bumpVersion(ctx, req.EmployeeID)
	return template, nil
}

// PeriodsFor resolves the ordered period list for an employee on a date,
// serving from cache when enabled. An empty slice is a valid "no schedule"
// outcome, not an error.
func (s *ScheduleService) PeriodsFor(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error) {
	if s.cache == nil {
		return s.periodsFromStore(ctx, employeeID, date)
	}

	key := s.cacheKey(ctx, employeeID, date)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var periods []models.SchedulePeriod
		if jsonErr := json.Unmarshal([]byte(cached), &periods); jsonErr == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return periods, nil
		}
	} else if err != nil {
		s.logger.Warn("schedule cache read failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(false)
	}

	periods, err := s.periodsFromStore(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}
	if encoded, jsonErr := json.Marshal(periods); jsonErr == nil {
		if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return periods, nil
}

func (s *ScheduleService) periodsFromStore(ctx context.Context, employeeID string, date time.Time) ([]models.SchedulePeriod, error) {
	periods, err := s.repo.PeriodsFor(ctx, employeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule periods")
	}
	return periods, nil
}

// cacheKey embeds a per-employee version counter so DefineSchedule can
// invalidate without enumerating cached dates.
func (s *ScheduleService) cacheKey(ctx context.Context, employeeID string, date time.Time) string {
	version := "0"
	if val, ok, err := s.cache.Get(ctx, "schedule:ver:"+employeeID); err == nil && ok {
		version = val
	}
	return fmt.Sprintf("schedule:%s:%s:%s", employeeID, version, date.Format(models.DateLayout))
}

func (s *ScheduleService) bumpVersion(ctx context.Context, employeeID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, "schedule:ver:"+employeeID); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.Error(err))
	}
}

// WeekTimetableEntry is one period with its descriptive class metadata.
type WeekTimetableEntry struct {
	models.SchedulePeriod
	SubjectCode *string `json:"subject_code,omitempty"`
	ClassLabel  *string `json:"class_label,omitempty"`
	Room        *string `json:"room,omitempty"`
}

// WeekTimetable returns the full weekly layout for an employee's current
// template, ordered by weekday then start time.
func (s *ScheduleService) WeekTimetable(ctx context.Context, employeeID string, onDate time.Time) ([]WeekTimetableEntry, error) {
	template, err := s.repo.FindTemplateForEmployee(ctx, employeeID, onDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve schedule")
	}
	if template == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee has no schedule")
	}
	periods, err := s.repo.TemplatePeriods(ctx, template.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	assignments, err := s.repo.PeriodAssignmentsFor(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period assignments")
	}
	byPeriod := make(map[string]models.PeriodAssignment, len(assignments))
	for _, a := range assignments {
		byPeriod[a.PeriodID] = a
	}

	entries := make([]WeekTimetableEntry, len(periods))
	for i, p := range periods {
		entries[i] = WeekTimetableEntry{SchedulePeriod: p}
		if a, ok := byPeriod[p.ID]; ok {
			code := a.SubjectCode
			entries[i].SubjectCode = &code
			entries[i].ClassLabel = a.ClassLabel
			entries[i].Room = a.Room
		}
	}
	return entries, nil
}

// AssignTemplate switches an employee onto another template starting at the
// given date, closing the previous assignment.
func (s *ScheduleService) AssignTemplate(ctx context.Context, employeeID, templateID, effectiveFrom string) error {
	if employeeID == "" || templateID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "employee_id and template_id are required")
	}
	from, err := time.Parse(models.DateLayout, effectiveFrom)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid effective_from, expected YYYY-MM-DD")
	}
	if err := s.repo.AssignTemplate(ctx, employeeID, templateID, from); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign schedule")
	}
	s.bumpVersion(ctx, employeeID)
	return nil
}
