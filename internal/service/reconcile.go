package service

import (
	"sort"
	"time"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

// Reconciliation holds the derived fields for one punch against one day's
// periods. Values are immutable once computed; persisting them is the
// ledger's job.
type Reconciliation struct {
	ScheduledMinutes  int
	ActualMinutes     int
	LateMinutes       int
	EarlyLeaveMinutes int
	OvertimeMinutes   int
	BreakMinutes      int
	Status            models.AttendanceStatus
}

// Reconcile derives attendance fields from a punch and the ordered period
// list for that date. It is a pure computation: no clock reads, no I/O.
// An empty period list is a distinct error, never treated as a zero-hour
// schedule. When manual is set the resulting status is forced to manual so
// corrections stay auditable apart from kiosk punches.
func Reconcile(punch models.Punch, periods []models.SchedulePeriod, manual bool) (*Reconciliation, error) {
	if len(periods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoScheduleForDay, "no schedule for "+punch.Date.Format(models.DateLayout))
	}

	spans, err := periodSpans(periods)
	if err != nil {
		return nil, err
	}

	result := &Reconciliation{}
	firstStart := spans[0].start
	lastEnd := spans[0].end
	for _, s := range spans {
		result.ScheduledMinutes += s.end - s.start
		if s.end > lastEnd {
			lastEnd = s.end
		}
	}
	// Gaps between periods are the scheduled break time.
	result.BreakMinutes = (lastEnd - firstStart) - result.ScheduledMinutes
	if result.BreakMinutes < 0 {
		result.BreakMinutes = 0
	}

	switch {
	case punch.TimeIn != nil && punch.TimeOut != nil:
		in, err := models.MinuteOfDay(*punch.TimeIn)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid time_in, expected HH:MM")
		}
		out, err := models.MinuteOfDay(*punch.TimeOut)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid time_out, expected HH:MM")
		}
		if out <= in {
			return nil, appErrors.Clone(appErrors.ErrInvalidPunchOrder, "")
		}
		result.ActualMinutes = out - in
		if in > firstStart {
			result.LateMinutes = in - firstStart
		}
		switch {
		case out < lastEnd:
			result.EarlyLeaveMinutes = lastEnd - out
		case out > lastEnd:
			result.OvertimeMinutes = out - lastEnd
		}
		result.Status = models.AttendanceStatusComplete
		if manual {
			result.Status = models.AttendanceStatusManual
		}
	case punch.TimeIn != nil || punch.TimeOut != nil:
		result.Status = models.AttendanceStatusIncomplete
	default:
		// Absence still carries the scheduled expectation.
		result.Status = models.AttendanceStatusAbsent
	}

	return result, nil
}

type span struct {
	start int
	end   int
}

// periodSpans converts periods to minute spans sorted by start time. The
// store returns them ordered already; sorting here keeps the calculator
// correct for callers that assembled the slice themselves.
func periodSpans(periods []models.SchedulePeriod) ([]span, error) {
	spans := make([]span, 0, len(periods))
	for _, p := range periods {
		start, err := models.MinuteOfDay(p.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period start time "+p.StartTime)
		}
		end, err := models.MinuteOfDay(p.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period end time "+p.EndTime)
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, "period "+p.Label+" ends before it starts")
		}
		spans = append(spans, span{start: start, end: end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans, nil
}

// DatesBetween enumerates every calendar date from start through end
// inclusive. Used by the leave overlay.
func DatesBetween(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
