package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/circuitbreaker"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// unreachableCache points at a closed port so every command fails fast.
func unreachableCache(t *testing.T) *Cache {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheFromClient(client, Config{})
}

func TestCache_KeyLayout(t *testing.T) {
	c := unreachableCache(t)
	cal := timeutil.Default()
	lc := NewLeaderboardCache(c, cal, nil)

	assert.Equal(t, "impact-hub:notifications", c.NotificationChannel())
	assert.Equal(t, "impact-hub:leaderboard:all_time:all", lc.BoardKey(leaderboard.PeriodAllTime, time.Time{}))
	assert.Equal(t, "impact-hub:leaderboard:weekly:2025-03-10",
		lc.BoardKey(leaderboard.PeriodWeekly, cal.Date(2025, time.March, 10)))
}

func TestCache_Defaults(t *testing.T) {
	c := unreachableCache(t)
	assert.Equal(t, DefaultConfig().LeaderboardTTL, c.Config().LeaderboardTTL)
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr)
}

func TestLeaderboardCache_UnavailableIsNotAMiss(t *testing.T) {
	lc := NewLeaderboardCache(unreachableCache(t), timeutil.Default(), nil)

	_, err := lc.Get(context.Background(), leaderboard.PeriodAllTime, time.Time{}, 10)
	require.Error(t, err)
	assert.False(t, shared.IsNotFound(err))
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestLeaderboardCache_BreakerOpens(t *testing.T) {
	breaker := circuitbreaker.New("test-cache", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Minute))
	lc := NewLeaderboardCache(unreachableCache(t), timeutil.Default(), breaker)
	ctx := context.Background()

	board := leaderboard.Board{PeriodType: leaderboard.PeriodAllTime, CompiledAt: time.Now()}
	assert.Error(t, lc.Put(ctx, board))
	assert.Error(t, lc.Put(ctx, board))
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err := lc.Get(ctx, leaderboard.PeriodAllTime, time.Time{}, 10)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
