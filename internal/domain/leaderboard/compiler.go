package leaderboard

import (
	"sort"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// Compile ranks standings by meals saved, highest first, breaking ties by
// user id so the order is deterministic. Ranks are dense positions 1..N.
// Duplicate user ids are summed.
func Compile(period Period, start time.Time, standings []Standing, compiledAt time.Time) Board {
	totals := make(map[string]int, len(standings))
	for _, s := range standings {
		totals[s.UserID] += s.MealsSaved
	}

	merged := make([]Standing, 0, len(totals))
	for id, meals := range totals {
		merged = append(merged, Standing{UserID: id, MealsSaved: meals})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].MealsSaved != merged[j].MealsSaved {
			return merged[i].MealsSaved > merged[j].MealsSaved
		}
		return merged[i].UserID < merged[j].UserID
	})

	entries := make([]Entry, len(merged))
	for i, s := range merged {
		entries[i] = Entry{
			PeriodType:  period,
			PeriodStart: start,
			UserID:      s.UserID,
			Rank:        shared.Rank(i + 1),
			MealsSaved:  s.MealsSaved,
		}
	}

	return Board{
		PeriodType:  period,
		PeriodStart: start,
		Entries:     entries,
		CompiledAt:  compiledAt,
	}
}
