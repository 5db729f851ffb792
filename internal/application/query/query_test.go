package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/application/query"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/internal/infrastructure/persistence/memory"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

func TestGetProgress_UnknownUserZeroRecord(t *testing.T) {
	db := memory.NewDB(nil)
	h := query.NewGetProgressHandler(db.Progress())

	dto, err := h.Handle(context.Background(), query.GetProgressQuery{UserID: "ghost"})
	require.NoError(t, err)

	assert.Equal(t, 1, dto.Level)
	assert.Equal(t, 100, dto.ExperienceToNextLevel)
	assert.Equal(t, 100, dto.NextLevelXP)
	assert.Nil(t, dto.LastActivityAt)
	assert.Equal(t, 0, db.Progress().Count())
}

func TestGetProgress_EmptyUserRejected(t *testing.T) {
	h := query.NewGetProgressHandler(memory.NewProgressRepository())
	_, err := h.Handle(context.Background(), query.GetProgressQuery{UserID: "  "})
	assert.True(t, shared.IsValidation(err))
}

func TestGetBadges_JoinsCatalog(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB(badge.DefaultCatalog())
	earned := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := db.Awards().Insert(ctx, badge.UserBadge{UserID: "u1", BadgeID: "first-rescue", EarnedAt: earned})
	require.NoError(t, err)

	h := query.NewGetBadgesHandler(db.Awards(), db.Catalog())
	res, err := h.Handle(ctx, query.GetBadgesQuery{UserID: "u1"})
	require.NoError(t, err)

	require.Equal(t, 1, res.Total)
	assert.Equal(t, "First Rescue", res.Badges[0].Name)
	assert.Equal(t, "meals_saved", res.Badges[0].RequirementType)
	assert.Equal(t, earned, res.Badges[0].EarnedAt)

	none, err := h.Handle(ctx, query.GetBadgesQuery{UserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, none.Badges)
}

func TestGetCurrentChallenge(t *testing.T) {
	ctx := context.Background()
	cal := timeutil.Default()
	db := memory.NewDB(nil)
	at := cal.Date(2025, time.July, 2)

	h := query.NewGetCurrentChallengeHandler(db.Challenges(), nil, cal)

	empty, err := h.Handle(ctx, query.GetCurrentChallengeQuery{UserID: "u1", ChallengeType: "meals_saved", At: at})
	require.NoError(t, err)
	assert.Equal(t, 5.0, empty.GoalValue)
	assert.Equal(t, 5.0, empty.Remaining)
	assert.Equal(t, "2025-06-30", empty.WeekStartDate)

	key := challenge.Key{UserID: "u1", Type: challenge.TypeMealsSaved, WeekStart: cal.StartOfWeek(at)}
	_, err = db.Challenges().AddProgress(ctx, key, 5, 3, at)
	require.NoError(t, err)

	dto, err := h.Handle(ctx, query.GetCurrentChallengeQuery{UserID: "u1", ChallengeType: "meals_saved", At: at})
	require.NoError(t, err)
	assert.Equal(t, 3.0, dto.CurrentValue)
	assert.Equal(t, 2.0, dto.Remaining)

	_, err = h.Handle(ctx, query.GetCurrentChallengeQuery{UserID: "u1", ChallengeType: "steps", At: at})
	assert.True(t, shared.IsValidation(err))
}

type brokenCache struct{}

func (brokenCache) Put(context.Context, leaderboard.Board) error { return errors.New("down") }
func (brokenCache) Get(context.Context, leaderboard.Period, time.Time, int) (*leaderboard.Board, error) {
	return nil, errors.New("down")
}

func TestGetLeaderboard_FallsBackToLiveCompile(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB(nil)
	for i, id := range []string{"a", "b", "c"} {
		p := progress.New(id)
		p.TotalMealsSaved = 10 - i
		require.NoError(t, db.Progress().Create(ctx, &p))
	}
	cal := timeutil.Default()
	src := leaderboard.NewRepositorySource(db.Progress(), db.Challenges(), cal)

	h := query.NewGetLeaderboardHandler(brokenCache{}, db.Leaderboards(), src, cal, nil)
	res, err := h.Handle(ctx, query.GetLeaderboardQuery{Period: "all_time", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, query.SourceLive, res.Source)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "a", res.Entries[0].UserID)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Empty(t, res.PeriodStart)
}

func TestGetLeaderboard_PrefersMaterialized(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB(nil)
	cal := timeutil.Default()
	week := cal.Date(2025, time.July, 7)

	board := leaderboard.Compile(leaderboard.PeriodWeekly, week, []leaderboard.Standing{
		{UserID: "x", MealsSaved: 4},
	}, time.Now())
	require.NoError(t, db.Leaderboards().SaveBoard(ctx, board))

	src := leaderboard.NewRepositorySource(db.Progress(), db.Challenges(), cal)
	h := query.NewGetLeaderboardHandler(nil, db.Leaderboards(), src, cal, nil)

	res, err := h.Handle(ctx, query.GetLeaderboardQuery{Period: "weekly", Start: week.Add(72 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, query.SourceMaterialized, res.Source)
	assert.Equal(t, "2025-07-07", res.PeriodStart)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "x", res.Entries[0].UserID)
}

func TestGetLeaderboard_Validation(t *testing.T) {
	h := query.NewGetLeaderboardHandler(nil, nil, nil, timeutil.Default(), nil)

	_, err := h.Handle(context.Background(), query.GetLeaderboardQuery{Period: "yearly"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), query.GetLeaderboardQuery{Period: "weekly", Limit: -1})
	assert.True(t, shared.IsValidation(err))
}
