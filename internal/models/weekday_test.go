package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayOfMondayFirst(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		assert.Equal(t, Weekday(offset), WeekdayOf(day), day.Format(DateLayout))
	}
}

func TestWeekdayOfSunday(t *testing.T) {
	sunday := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Sunday, WeekdayOf(sunday))
}

func TestWeekdayValid(t *testing.T) {
	assert.True(t, Monday.Valid())
	assert.True(t, Sunday.Valid())
	assert.False(t, Weekday(-1).Valid())
	assert.False(t, Weekday(7).Valid())
}

func TestWeekdayString(t *testing.T) {
	assert.Equal(t, "Monday", Monday.String())
	assert.Equal(t, "Sunday", Sunday.String())
	assert.Equal(t, "invalid", Weekday(9).String())
}

func TestMinuteOfDay(t *testing.T) {
	minutes, err := MinuteOfDay("08:30")
	assert.NoError(t, err)
	assert.Equal(t, 510, minutes)

	_, err = MinuteOfDay("8:30am")
	assert.Error(t, err)

	_, err = MinuteOfDay("25:00")
	assert.Error(t, err)
}
