package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mysterybag/impact-hub/internal/domain/impact"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

var orderDelta = impact.Delta{Meals: 1, CO2Kg: 2.5, WaterL: 1000, Money: 700, Experience: 10}

func TestNext_StreakScenarios(t *testing.T) {
	cal := timeutil.Default()
	today := cal.Date(2025, time.June, 12).Add(10 * time.Hour)

	withStreak := func(current, longest int, last time.Time) UserProgress {
		p := New("u1")
		p.CurrentStreak = current
		p.LongestStreak = longest
		p.LastActivityAt = last
		p.Version = 3
		return p
	}

	t.Run("yesterday extends", func(t *testing.T) {
		next := Next(cal, withStreak(5, 5, today.AddDate(0, 0, -1)), orderDelta, today)
		assert.Equal(t, 6, next.CurrentStreak)
		assert.Equal(t, 6, next.LongestStreak)
		assert.Equal(t, today, next.LastActivityAt)
	})

	t.Run("yesterday keeps higher longest", func(t *testing.T) {
		next := Next(cal, withStreak(5, 9, today.AddDate(0, 0, -1)), orderDelta, today)
		assert.Equal(t, 6, next.CurrentStreak)
		assert.Equal(t, 9, next.LongestStreak)
	})

	t.Run("three day gap resets", func(t *testing.T) {
		next := Next(cal, withStreak(5, 5, today.AddDate(0, 0, -3)), orderDelta, today)
		assert.Equal(t, 1, next.CurrentStreak)
		assert.Equal(t, 5, next.LongestStreak)
	})

	t.Run("same day keeps streak", func(t *testing.T) {
		next := Next(cal, withStreak(5, 5, today.Add(-2*time.Hour)), orderDelta, today)
		assert.Equal(t, 5, next.CurrentStreak)
		assert.Equal(t, today, next.LastActivityAt)
	})

	t.Run("late delivery leaves streak and timestamp", func(t *testing.T) {
		next := Next(cal, withStreak(5, 5, today), orderDelta, today.AddDate(0, 0, -2))
		assert.Equal(t, 5, next.CurrentStreak)
		assert.Equal(t, today, next.LastActivityAt)
	})

	t.Run("first event starts at one", func(t *testing.T) {
		next := Next(cal, New("u1"), orderDelta, today)
		assert.Equal(t, 1, next.CurrentStreak)
		assert.Equal(t, 1, next.LongestStreak)
	})

	t.Run("day boundary is in reference zone", func(t *testing.T) {
		// 20:30 UTC on the 11th is already 23:30 EAT; 21:30 UTC is the 12th.
		last := time.Date(2025, 6, 11, 20, 30, 0, 0, time.UTC)
		at := time.Date(2025, 6, 11, 21, 30, 0, 0, time.UTC)
		next := Next(cal, withStreak(2, 2, last), orderDelta, at)
		assert.Equal(t, 3, next.CurrentStreak)
	})
}

func TestNext_CountersAndLevel(t *testing.T) {
	cal := timeutil.Default()
	at := cal.Date(2025, time.June, 12)

	p := New("u1")
	for i := 0; i < 10; i++ {
		p = Next(cal, p, orderDelta, at)
	}

	assert.Equal(t, 10, p.TotalMealsSaved)
	assert.Equal(t, 25.0, p.TotalCO2Saved)
	assert.Equal(t, 10000.0, p.TotalWaterSaved)
	assert.Equal(t, 7000.0, p.TotalMoneySaved)
	assert.Equal(t, 100, p.ExperiencePoints)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 200, p.ExperienceToNextLevel)
	assert.GreaterOrEqual(t, p.LongestStreak, p.CurrentStreak)
}

func TestNext_MoneyAccumulatesWithoutDrift(t *testing.T) {
	cal := timeutil.Default()
	p := New("u1")
	for i := 0; i < 10; i++ {
		p = Next(cal, p, impact.Delta{Money: 0.07}, cal.Date(2025, time.June, 12))
	}
	assert.Equal(t, 0.7, p.TotalMoneySaved)
}

func TestDiff(t *testing.T) {
	cal := timeutil.Default()
	prev := New("u1")
	prev.ExperiencePoints = 95
	prev.Level = 1

	curr := Next(cal, prev, orderDelta, cal.Date(2025, time.June, 12))
	change := Diff(prev, curr)

	assert.Equal(t, 1, change.MealsSaved)
	assert.Equal(t, 700.0, change.MoneySaved)
	assert.Equal(t, 10, change.ExperienceGained)
	assert.True(t, change.LeveledUp())
	assert.Equal(t, 1, change.OldLevel)
	assert.Equal(t, 2, change.NewLevel)

	assert.False(t, Diff(curr, curr).LeveledUp())
}
