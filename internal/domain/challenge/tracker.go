package challenge

import (
	"context"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// Tracker applies progress to weekly challenge rows.
type Tracker struct {
	repo    Repository
	catalog Catalog
	cal     timeutil.Calendar
}

// NewTracker creates a Tracker.
func NewTracker(repo Repository, catalog Catalog, cal timeutil.Calendar) *Tracker {
	return &Tracker{repo: repo, catalog: catalog, cal: cal}
}

// WeekStart returns the Monday 00:00 of at's week in the reference zone.
func (t *Tracker) WeekStart(at time.Time) time.Time {
	return t.cal.StartOfWeek(at)
}

// ApplyChallengeProgress adds increment to the user's row for the week
// containing at. justCompleted is true for exactly one call per row: the
// one whose conditional update flipped is_completed.
func (t *Tracker) ApplyChallengeProgress(ctx context.Context, userID string, challengeType Type, increment float64, at time.Time) (WeeklyChallenge, bool, error) {
	def, err := t.catalog.Lookup(challengeType)
	if err != nil {
		return WeeklyChallenge{}, false, err
	}
	if increment < 0 {
		return WeeklyChallenge{}, false, shared.WrapError("challenge", "ApplyChallengeProgress", shared.ErrValidation,
			"increment must be >= 0", shared.ErrNegativeValue)
	}

	key := Key{UserID: userID, Type: challengeType, WeekStart: t.WeekStart(at)}

	row, err := t.repo.AddProgress(ctx, key, def.Goal, increment, at)
	if err != nil {
		return WeeklyChallenge{}, false, err
	}
	if row.IsCompleted || !row.GoalReached() {
		return *row, false, nil
	}

	flipped, err := t.repo.MarkCompleted(ctx, key, at)
	if err != nil {
		return WeeklyChallenge{}, false, err
	}
	if flipped {
		completedAt := at
		row.IsCompleted = true
		row.CompletedAt = &completedAt
		return *row, true, nil
	}

	// Another caller completed it between our increment and our update.
	latest, err := t.repo.Get(ctx, key)
	if err != nil {
		return WeeklyChallenge{}, false, err
	}
	return *latest, false, nil
}

// Current returns the row for the week containing at, or an unsaved zero
// row with the default goal. Reads never create rows.
func (t *Tracker) Current(ctx context.Context, userID string, challengeType Type, at time.Time) (WeeklyChallenge, error) {
	def, err := t.catalog.Lookup(challengeType)
	if err != nil {
		return WeeklyChallenge{}, err
	}

	key := Key{UserID: userID, Type: challengeType, WeekStart: t.WeekStart(at)}
	row, err := t.repo.Get(ctx, key)
	if shared.IsNotFound(err) {
		return Empty(key, def.Goal), nil
	}
	if err != nil {
		return WeeklyChallenge{}, err
	}
	return *row, nil
}
