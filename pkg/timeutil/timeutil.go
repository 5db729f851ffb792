// Package timeutil provides calendar arithmetic pinned to one reference
// timezone. Week, month and streak boundaries are always computed in that
// zone, never in the caller's local time.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultZoneName is the reference timezone of the marketplace (EAT, UTC+3, no DST).
const DefaultZoneName = "Africa/Nairobi"

// EastAfricaTZ is used when the tz database is not available on the host.
var EastAfricaTZ = time.FixedZone(DefaultZoneName, 3*60*60)

// Common date formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// LoadZone resolves a zone by IANA name. The default zone falls back to a
// fixed offset so minimal containers without tzdata still boot.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == DefaultZoneName {
		if loc, err := time.LoadLocation(DefaultZoneName); err == nil {
			return loc, nil
		}
		return EastAfricaTZ, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Calendar performs day, week and month arithmetic in a fixed location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a calendar for the given location. A nil location
// selects the default reference zone.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = EastAfricaTZ
	}
	return Calendar{loc: loc}
}

// Default returns the calendar of the default reference zone.
func Default() Calendar {
	return NewCalendar(EastAfricaTZ)
}

// Location returns the reference location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return EastAfricaTZ
	}
	return c.loc
}

// In converts a time to the reference zone.
func (c Calendar) In(t time.Time) time.Time {
	return t.In(c.Location())
}

// Date creates midnight of the given date in the reference zone.
func (c Calendar) Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, c.Location())
}

// StartOfDay returns 00:00:00 of t's day in the reference zone.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := c.In(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// StartOfWeek returns Monday 00:00:00 of t's ISO week in the reference zone.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	local := c.In(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return c.StartOfDay(local.AddDate(0, 0, -(weekday - 1)))
}

// StartOfMonth returns the first day of t's month in the reference zone.
func (c Calendar) StartOfMonth(t time.Time) time.Time {
	local := c.In(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.Location())
}

// DaysBetween returns the number of calendar-day boundaries crossed going
// from a to b. Negative when b is on an earlier day than a.
func (c Calendar) DaysBetween(a, b time.Time) int {
	da := c.StartOfDay(a)
	db := c.StartOfDay(b)
	// Date arithmetic via UTC midnights avoids DST-length days.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// IsSameDay reports whether a and b fall on the same calendar day.
func (c Calendar) IsSameDay(a, b time.Time) bool {
	return c.DaysBetween(a, b) == 0
}

// ParseDate parses a YYYY-MM-DD string as midnight in the reference zone.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDate, s, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDateStr formats a time as YYYY-MM-DD in the reference zone.
func (c Calendar) FormatDateStr(t time.Time) string {
	return c.In(t).Format(FormatDate)
}
