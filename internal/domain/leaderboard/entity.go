// Package leaderboard compiles ranked read views over user progress and
// weekly challenge rows. Boards are derived data: they may lag behind
// progress updates and are never a source of truth.
package leaderboard

import (
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Period is the time window a board covers.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// Periods lists every supported period.
func Periods() []Period {
	return []Period{PeriodWeekly, PeriodMonthly, PeriodAllTime}
}

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return p, nil
	}
	return "", shared.WrapError("leaderboard", "ParsePeriod", shared.ErrInvalidInput,
		"unknown period "+s, shared.ErrUnknownPeriod)
}

// NormalizeStart snaps start to the beginning of its period: Monday for
// weekly, the first of the month for monthly, and the zero time for
// all_time.
func NormalizeStart(cal timeutil.Calendar, p Period, start time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return cal.StartOfWeek(start)
	case PeriodMonthly:
		return cal.StartOfMonth(start)
	default:
		return time.Time{}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Standing is one user's score before ranking.
type Standing struct {
	UserID     string
	MealsSaved int
}

// Entry is one ranked row of a board.
type Entry struct {
	PeriodType  Period
	PeriodStart time.Time
	UserID      string
	Rank        shared.Rank
	MealsSaved  int
}

// Board is a compiled leaderboard for one period.
type Board struct {
	PeriodType  Period
	PeriodStart time.Time
	Entries     []Entry
	CompiledAt  time.Time
}

// Top returns the first n entries, or all when n <= 0.
func (b Board) Top(n int) []Entry {
	if n <= 0 || n >= len(b.Entries) {
		return b.Entries
	}
	return b.Entries[:n]
}

// Find returns a user's entry on the board.
func (b Board) Find(userID string) (Entry, bool) {
	for _, e := range b.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}
