package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func workday(periods ...[2]string) []models.SchedulePeriod {
	out := make([]models.SchedulePeriod, 0, len(periods))
	for i, p := range periods {
		out = append(out, models.SchedulePeriod{
			ID:        "p" + string(rune('1'+i)),
			Weekday:   models.Monday,
			Label:     "Shift",
			StartTime: p[0],
			EndTime:   p[1],
			Active:    true,
		})
	}
	return out
}

func punchOn(date time.Time, in, out *string) models.Punch {
	return models.Punch{EmployeeID: "emp-1", Date: date, TimeIn: in, TimeOut: out}
}

var testDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestReconcileCompleteDay(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:15"), strPtr("17:00")), periods, false)
	require.NoError(t, err)

	assert.Equal(t, models.AttendanceStatusComplete, res.Status)
	assert.Equal(t, 540, res.ScheduledMinutes)
	assert.Equal(t, 525, res.ActualMinutes)
	assert.Equal(t, 15, res.LateMinutes)
	assert.Equal(t, 0, res.EarlyLeaveMinutes)
	assert.Equal(t, 0, res.OvertimeMinutes)
	assert.Equal(t, 0, res.BreakMinutes)
}

func TestReconcileExactBoundaries(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("17:00")), periods, false)
	require.NoError(t, err)

	// Punching exactly at the boundaries is neither late nor early.
	assert.Equal(t, 0, res.LateMinutes)
	assert.Equal(t, 0, res.EarlyLeaveMinutes)
	assert.Equal(t, 0, res.OvertimeMinutes)

	res, err = Reconcile(punchOn(testDate, strPtr("08:01"), strPtr("17:00")), periods, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LateMinutes)
}

func TestReconcileSplitShiftWithBreak(t *testing.T) {
	periods := workday([2]string{"08:00", "10:00"}, [2]string{"13:00", "15:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("15:30")), periods, false)
	require.NoError(t, err)

	assert.Equal(t, 240, res.ScheduledMinutes)
	assert.Equal(t, 450, res.ActualMinutes)
	assert.Equal(t, 180, res.BreakMinutes)
	assert.Equal(t, 30, res.OvertimeMinutes)
	assert.Equal(t, 0, res.EarlyLeaveMinutes)
}

func TestReconcileUnorderedPeriods(t *testing.T) {
	// Caller-assembled slices may not be sorted; lateness is still measured
	// against the earliest period.
	periods := workday([2]string{"13:00", "15:00"}, [2]string{"08:00", "10:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:30"), strPtr("15:00")), periods, false)
	require.NoError(t, err)

	assert.Equal(t, 30, res.LateMinutes)
	assert.Equal(t, 0, res.EarlyLeaveMinutes)
}

func TestReconcileEarlyLeave(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("16:20")), periods, false)
	require.NoError(t, err)

	assert.Equal(t, 40, res.EarlyLeaveMinutes)
	assert.Equal(t, 0, res.OvertimeMinutes)
}

func TestReconcileManualForcesStatus(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("17:00")), periods, true)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusManual, res.Status)
}

func TestReconcileSinglePunchIsIncomplete(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, strPtr("08:00"), nil), periods, false)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusIncomplete, res.Status)
	assert.Equal(t, 0, res.ActualMinutes)

	res, err = Reconcile(punchOn(testDate, nil, strPtr("17:00")), periods, false)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusIncomplete, res.Status)
}

func TestReconcileNoPunchesIsAbsent(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	res, err := Reconcile(punchOn(testDate, nil, nil), periods, false)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, res.Status)
	assert.Equal(t, 540, res.ScheduledMinutes)
	assert.Equal(t, 0, res.ActualMinutes)
}

func TestReconcileEmptyScheduleRejected(t *testing.T) {
	_, err := Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("17:00")), nil, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNoScheduleForDay))
}

func TestReconcileOutBeforeInRejected(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	_, err := Reconcile(punchOn(testDate, strPtr("17:00"), strPtr("08:00")), periods, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidPunchOrder))

	_, err = Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("08:00")), periods, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidPunchOrder))
}

func TestReconcileMalformedClockValues(t *testing.T) {
	periods := workday([2]string{"08:00", "17:00"})

	_, err := Reconcile(punchOn(testDate, strPtr("8am"), strPtr("17:00")), periods, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	bad := workday([2]string{"17:00", "08:00"})
	_, err = Reconcile(punchOn(testDate, strPtr("08:00"), strPtr("17:00")), bad, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDatesBetween(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	dates := DatesBetween(start, end)
	require.Len(t, dates, 4)
	assert.Equal(t, start, dates[0])
	assert.Equal(t, end, dates[3])

	single := DatesBetween(start, start)
	require.Len(t, single, 1)
}
