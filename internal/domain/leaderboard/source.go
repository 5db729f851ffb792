package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// RepositorySource reads standings straight from the progress and challenge
// stores. All-time boards use lifetime meal totals; weekly and monthly
// boards use the meals_saved weekly challenge rows.
type RepositorySource struct {
	progress   progress.Repository
	challenges challenge.Repository
	cal        timeutil.Calendar
}

// NewRepositorySource creates a RepositorySource.
func NewRepositorySource(p progress.Repository, c challenge.Repository, cal timeutil.Calendar) *RepositorySource {
	return &RepositorySource{progress: p, challenges: c, cal: cal}
}

// Standings implements Source.
func (s *RepositorySource) Standings(ctx context.Context, period Period, start time.Time) ([]Standing, error) {
	switch period {
	case PeriodAllTime:
		rows, err := s.progress.ListTopByMeals(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("list progress: %w", err)
		}
		out := make([]Standing, 0, len(rows))
		for _, r := range rows {
			out = append(out, Standing{UserID: r.UserID, MealsSaved: r.TotalMealsSaved})
		}
		return out, nil

	case PeriodWeekly:
		rows, err := s.challenges.ListByWeek(ctx, challenge.TypeMealsSaved, s.cal.StartOfWeek(start))
		if err != nil {
			return nil, fmt.Errorf("list weekly challenges: %w", err)
		}
		return fromChallenges(rows), nil

	case PeriodMonthly:
		from := s.cal.StartOfMonth(start)
		to := from.AddDate(0, 1, 0)
		rows, err := s.challenges.ListByWeekRange(ctx, challenge.TypeMealsSaved, from, to)
		if err != nil {
			return nil, fmt.Errorf("list monthly challenges: %w", err)
		}
		return fromChallenges(rows), nil
	}

	_, err := ParsePeriod(string(period))
	return nil, err
}

func fromChallenges(rows []challenge.WeeklyChallenge) []Standing {
	out := make([]Standing, 0, len(rows))
	for _, r := range rows {
		out = append(out, Standing{UserID: r.UserID, MealsSaved: int(r.CurrentValue)})
	}
	return out
}
