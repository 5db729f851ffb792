package challenge

import (
	"context"
	"time"
)

// Repository is the storage port for weekly challenges. Both write methods
// must be single atomic operations at the storage layer.
type Repository interface {
	// AddProgress creates the row for key if missing (with goal and zero
	// progress) and adds by to current_value in one step. It returns the
	// row after the increment.
	AddProgress(ctx context.Context, key Key, goal, by float64, at time.Time) (*WeeklyChallenge, error)

	// MarkCompleted flips is_completed to true only if it is still false and
	// current_value >= goal_value. It reports whether this call flipped it.
	MarkCompleted(ctx context.Context, key Key, at time.Time) (bool, error)

	// Get returns the row or an error matching shared.ErrNotFound.
	Get(ctx context.Context, key Key) (*WeeklyChallenge, error)

	// ListByWeek returns every row of a type for the given week.
	ListByWeek(ctx context.Context, challengeType Type, weekStart time.Time) ([]WeeklyChallenge, error)

	// ListByWeekRange returns every row of a type whose week starts in [from, to).
	ListByWeekRange(ctx context.Context, challengeType Type, from, to time.Time) ([]WeeklyChallenge, error)
}
