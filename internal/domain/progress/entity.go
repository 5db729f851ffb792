// Package progress owns the per-user impact record: cumulative counters,
// experience, level and daily streak. All mutation goes through
// Store.ApplyDelta; the transition itself is the pure function Next.
package progress

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mysterybag/impact-hub/internal/domain/impact"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// UserProgress is the durable, versioned progress record of one user.
type UserProgress struct {
	UserID                string
	TotalMealsSaved       int
	TotalCO2Saved         float64
	TotalMoneySaved       float64
	TotalWaterSaved       float64
	ExperiencePoints      int
	Level                 int
	ExperienceToNextLevel int
	CurrentStreak         int
	LongestStreak         int

	// LastActivityAt is the latest event timestamp applied. Zero before the
	// first event.
	LastActivityAt time.Time

	// Version increases by one on every successful write.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns the zero record for a user: all counters zero, level 1.
func New(userID string) UserProgress {
	info := ResolveLevel(0)
	return UserProgress{
		UserID:                userID,
		Level:                 info.Level,
		ExperienceToNextLevel: info.ExperienceToNextLevel,
	}
}

// IsPersisted reports whether the record has been written at least once.
func (p UserProgress) IsPersisted() bool {
	return p.Version > 0
}

// Next computes the state after applying delta for an event at occurredAt.
// It never mutates prev. The caller stamps Version and timestamps on write.
func Next(cal timeutil.Calendar, prev UserProgress, delta impact.Delta, occurredAt time.Time) UserProgress {
	next := prev

	next.TotalMealsSaved += delta.Meals
	next.TotalCO2Saved = addRounded(prev.TotalCO2Saved, delta.CO2Kg, 3)
	next.TotalWaterSaved = addRounded(prev.TotalWaterSaved, delta.WaterL, 3)
	next.TotalMoneySaved = addRounded(prev.TotalMoneySaved, delta.Money, 2)
	next.ExperiencePoints += delta.Experience
	if next.ExperiencePoints < 0 {
		next.ExperiencePoints = 0
	}

	info := ResolveLevel(next.ExperiencePoints)
	next.Level = info.Level
	next.ExperienceToNextLevel = info.ExperienceToNextLevel

	next.CurrentStreak, next.LastActivityAt = nextStreak(cal, prev.CurrentStreak, prev.LastActivityAt, occurredAt)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}

	return next
}

// nextStreak applies the calendar-day gap rule in the reference zone.
// Same day keeps the streak, the following day extends it, a longer gap
// restarts it at one. Late deliveries older than the last applied event
// leave the streak alone.
func nextStreak(cal timeutil.Calendar, current int, last, at time.Time) (int, time.Time) {
	if last.IsZero() || current == 0 {
		return 1, laterOf(last, at)
	}

	switch days := cal.DaysBetween(last, at); {
	case days < 0:
		return current, last
	case days == 0:
		return current, laterOf(last, at)
	case days == 1:
		return current + 1, at
	default:
		return 1, at
	}
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func addRounded(a, b float64, places int32) float64 {
	v, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(places).Float64()
	return v
}

// Change is the difference between two snapshots of the same user's
// progress. It replaces any shared "previous metrics" state: callers pass
// both snapshots explicitly.
type Change struct {
	MealsSaved       int
	CO2Saved         float64
	MoneySaved       float64
	WaterSaved       float64
	ExperienceGained int
	OldLevel         int
	NewLevel         int
	StreakBefore     int
	StreakAfter      int
}

// LeveledUp reports whether the level rose.
func (c Change) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// StreakReset reports whether a running streak restarted.
func (c Change) StreakReset() bool {
	return c.StreakBefore > 1 && c.StreakAfter == 1
}

// Diff compares two snapshots. previous may be the zero record.
func Diff(previous, current UserProgress) Change {
	oldLevel := previous.Level
	if oldLevel == 0 {
		oldLevel = 1
	}
	return Change{
		MealsSaved:       current.TotalMealsSaved - previous.TotalMealsSaved,
		CO2Saved:         subRounded(current.TotalCO2Saved, previous.TotalCO2Saved, 3),
		MoneySaved:       subRounded(current.TotalMoneySaved, previous.TotalMoneySaved, 2),
		WaterSaved:       subRounded(current.TotalWaterSaved, previous.TotalWaterSaved, 3),
		ExperienceGained: current.ExperiencePoints - previous.ExperiencePoints,
		OldLevel:         oldLevel,
		NewLevel:         current.Level,
		StreakBefore:     previous.CurrentStreak,
		StreakAfter:      current.CurrentStreak,
	}
}

func subRounded(a, b float64, places int32) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(places).Float64()
	return v
}
