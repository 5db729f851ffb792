package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/config"
	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/internal/application/query"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load(config.Options{EnvFiles: []string{}})
	require.NoError(t, err)
	return cfg
}

func TestBuild_InMemoryEndToEnd(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, testConfig(t), logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.LeaderboardCache)

	earned := make(chan shared.Event, 4)
	require.NoError(t, c.Bus.Subscribe(shared.EventBadgeEarned, func(e shared.Event) error {
		earned <- e
		return nil
	}))

	total := 15.0
	outcome, err := c.CompleteOrderHandler().Handle(ctx, command.CompleteOrderCommand{
		EventID:    "evt-1",
		UserID:     "user-1",
		OrderTotal: &total,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, command.StatusCompleted, outcome.Status)

	select {
	case e := <-earned:
		assert.Equal(t, "user-1", e.AggregateID())
	case <-time.After(2 * time.Second):
		t.Fatal("badge notification not delivered")
	}

	q := c.QueryHandlers()
	dto, err := q.Progress.Handle(ctx, query.GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, dto.TotalMealsSaved)

	board, err := q.Leaderboard.Handle(ctx, query.GetLeaderboardQuery{Period: "all_time"})
	require.NoError(t, err)
	assert.Equal(t, query.SourceLive, board.Source)

	s, err := c.Scheduler()
	require.NoError(t, err)
	result, err := s.RunNow(ctx, "rebuild_leaderboard")
	require.NoError(t, err)
	assert.True(t, result.Success)

	board, err = q.Leaderboard.Handle(ctx, query.GetLeaderboardQuery{Period: "all_time"})
	require.NoError(t, err)
	assert.Equal(t, query.SourceMaterialized, board.Source)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "user-1", board.Entries[0].UserID)

	names := make([]string, 0, 2)
	for _, j := range s.ListJobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"prune_activity_log", "rebuild_leaderboard"}, names)
}

func TestBuild_UnreachableRedisFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 100 * time.Millisecond

	c, err := Build(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.LeaderboardCache)
	status := c.Health.Check(context.Background())
	assert.True(t, status.Healthy)
}
