package leaderboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/internal/infrastructure/persistence/memory"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

func TestCompile_OrdersByMealsThenUserID(t *testing.T) {
	board := leaderboard.Compile(leaderboard.PeriodAllTime, time.Time{}, []leaderboard.Standing{
		{UserID: "carol", MealsSaved: 3},
		{UserID: "bob", MealsSaved: 7},
		{UserID: "alice", MealsSaved: 3},
		{UserID: "dave", MealsSaved: 0},
	}, time.Now())

	require.Len(t, board.Entries, 4)
	var order []string
	for i, e := range board.Entries {
		order = append(order, e.UserID)
		assert.Equal(t, shared.Rank(i+1), e.Rank)
	}
	assert.Equal(t, []string{"bob", "alice", "carol", "dave"}, order)
}

func TestCompile_SumsDuplicateUsers(t *testing.T) {
	board := leaderboard.Compile(leaderboard.PeriodMonthly, time.Time{}, []leaderboard.Standing{
		{UserID: "a", MealsSaved: 2},
		{UserID: "b", MealsSaved: 3},
		{UserID: "a", MealsSaved: 2},
	}, time.Now())

	e, ok := board.Find("a")
	require.True(t, ok)
	assert.Equal(t, 4, e.MealsSaved)
	assert.Equal(t, shared.Rank(1), e.Rank)
	assert.Len(t, board.Top(1), 1)
}

func TestParsePeriod(t *testing.T) {
	p, err := leaderboard.ParsePeriod("weekly")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.PeriodWeekly, p)

	_, err = leaderboard.ParsePeriod("daily")
	assert.True(t, shared.IsValidation(err))
}

func TestNormalizeStart(t *testing.T) {
	cal := timeutil.Default()
	thursday := cal.Date(2025, time.May, 15).Add(8 * time.Hour)

	assert.Equal(t, "2025-05-12", cal.FormatDateStr(leaderboard.NormalizeStart(cal, leaderboard.PeriodWeekly, thursday)))
	assert.Equal(t, "2025-05-01", cal.FormatDateStr(leaderboard.NormalizeStart(cal, leaderboard.PeriodMonthly, thursday)))
	assert.True(t, leaderboard.NormalizeStart(cal, leaderboard.PeriodAllTime, thursday).IsZero())
}

func TestRepositorySource(t *testing.T) {
	ctx := context.Background()
	cal := timeutil.Default()
	db := memory.NewDB(nil)

	for _, u := range []struct {
		id    string
		meals int
	}{{"a", 5}, {"b", 9}} {
		p := progress.New(u.id)
		p.TotalMealsSaved = u.meals
		require.NoError(t, db.Progress().Create(ctx, &p))
	}

	may5 := cal.Date(2025, time.May, 5)
	may12 := cal.Date(2025, time.May, 12)
	apr28 := cal.Date(2025, time.April, 28)
	add := func(user string, week time.Time, by float64) {
		key := challenge.Key{UserID: user, Type: challenge.TypeMealsSaved, WeekStart: week}
		_, err := db.Challenges().AddProgress(ctx, key, 5, by, week)
		require.NoError(t, err)
	}
	add("a", may5, 2)
	add("a", may12, 3)
	add("b", may12, 1)
	add("b", apr28, 8)

	src := leaderboard.NewRepositorySource(db.Progress(), db.Challenges(), cal)

	allTime, err := src.Standings(ctx, leaderboard.PeriodAllTime, time.Time{})
	require.NoError(t, err)
	board := leaderboard.Compile(leaderboard.PeriodAllTime, time.Time{}, allTime, time.Now())
	assert.Equal(t, "b", board.Entries[0].UserID)

	weekly, err := src.Standings(ctx, leaderboard.PeriodWeekly, may12.Add(50*time.Hour))
	require.NoError(t, err)
	board = leaderboard.Compile(leaderboard.PeriodWeekly, may12, weekly, time.Now())
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "a", board.Entries[0].UserID)
	assert.Equal(t, 3, board.Entries[0].MealsSaved)

	monthly, err := src.Standings(ctx, leaderboard.PeriodMonthly, cal.Date(2025, time.May, 1))
	require.NoError(t, err)
	board = leaderboard.Compile(leaderboard.PeriodMonthly, cal.Date(2025, time.May, 1), monthly, time.Now())
	a, _ := board.Find("a")
	b, _ := board.Find("b")
	assert.Equal(t, 5, a.MealsSaved)
	assert.Equal(t, 1, b.MealsSaved)
}
