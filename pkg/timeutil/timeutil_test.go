package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeek_MondayInReferenceZone(t *testing.T) {
	cal := Default()

	// Sunday 22:30 UTC is already Monday 01:30 in EAT.
	sundayNightUTC := time.Date(2025, 3, 9, 22, 30, 0, 0, time.UTC)
	start := cal.StartOfWeek(sundayNightUTC)

	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, "2025-03-10", cal.FormatDateStr(start))
	assert.Equal(t, 0, start.Hour())

	// Sunday afternoon belongs to the week that started the previous Monday.
	sunday := cal.Date(2025, time.March, 16).Add(15 * time.Hour)
	assert.Equal(t, "2025-03-10", cal.FormatDateStr(cal.StartOfWeek(sunday)))
}

func TestStartOfMonth(t *testing.T) {
	cal := Default()
	at := time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC) // Feb 1 01:00 EAT

	assert.Equal(t, "2025-02-01", cal.FormatDateStr(cal.StartOfMonth(at)))
}

func TestDaysBetween(t *testing.T) {
	cal := Default()
	base := cal.Date(2025, time.May, 5).Add(23 * time.Hour)

	assert.Equal(t, 0, cal.DaysBetween(base, base.Add(-22*time.Hour)))
	assert.Equal(t, 1, cal.DaysBetween(base, base.Add(2*time.Hour)))
	assert.Equal(t, 3, cal.DaysBetween(base, base.Add(72*time.Hour)))
	assert.Equal(t, -1, cal.DaysBetween(base, base.Add(-24*time.Hour)))
	assert.True(t, cal.IsSameDay(base, base.Add(-time.Hour)))
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.NotNil(t, loc)

	_, err = LoadZone("Not/AZone")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	cal := Default()
	d, err := cal.ParseDate("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", cal.FormatDateStr(d))

	_, err = cal.ParseDate("02/06/2025")
	assert.Error(t, err)
}
