package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/circuitbreaker"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache stores compiled boards in Redis.
//
// Layout per (period, start):
//   - Sorted Set "{prefix}leaderboard:{period}:{start}" maps user id to the
//     negated meals count, so ZRANGE yields meals desc with user id asc on ties
//   - String "{prefix}leaderboard:{period}:{start}:meta" holds board metadata
//
// Every call goes through a circuit breaker. A miss is reported as
// shared.ErrNotFound and never counts against the breaker.
type LeaderboardCache struct {
	cache   *Cache
	cal     timeutil.Calendar
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
}

// boardMeta is stored next to the sorted set.
type boardMeta struct {
	PeriodType string    `json:"period_type"`
	CompiledAt time.Time `json:"compiled_at"`
	Size       int       `json:"size"`
}

// NewLeaderboardCache creates a new LeaderboardCache. A nil breaker gets
// circuitbreaker.CacheBreaker.
func NewLeaderboardCache(cache *Cache, cal timeutil.Calendar, breaker *circuitbreaker.CircuitBreaker) *LeaderboardCache {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(nil)
	}
	return &LeaderboardCache{
		cache:   cache,
		cal:     cal,
		breaker: breaker,
		ttl:     cache.Config().LeaderboardTTL,
	}
}

// BoardKey returns the sorted set key for a board.
func (l *LeaderboardCache) BoardKey(period leaderboard.Period, start time.Time) string {
	suffix := "all"
	if !start.IsZero() {
		suffix = l.cal.FormatDateStr(start)
	}
	return l.cache.Key("leaderboard", string(period), suffix)
}

func (l *LeaderboardCache) metaKey(period leaderboard.Period, start time.Time) string {
	return l.BoardKey(period, start) + ":meta"
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Put replaces the cached board atomically.
func (l *LeaderboardCache) Put(ctx context.Context, board leaderboard.Board) error {
	boardKey := l.BoardKey(board.PeriodType, board.PeriodStart)
	metaKey := l.metaKey(board.PeriodType, board.PeriodStart)

	members := make([]redis.Z, 0, len(board.Entries))
	for _, e := range board.Entries {
		if e.UserID == "" {
			continue
		}
		members = append(members, redis.Z{
			Score:  -float64(e.MealsSaved),
			Member: e.UserID,
		})
	}

	meta := boardMeta{
		PeriodType: string(board.PeriodType),
		CompiledAt: board.CompiledAt,
		Size:       len(members),
	}

	return l.breaker.Execute(ctx, func(ctx context.Context) error {
		pipe := l.cache.Client().TxPipeline()
		pipe.Del(ctx, boardKey, metaKey)
		if len(members) > 0 {
			pipe.ZAdd(ctx, boardKey, members...)
			pipe.Expire(ctx, boardKey, l.ttl)
		}

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("leaderboard_cache: put %s: %w", boardKey, err)
		}
		// Meta goes last: a reader that sees it also sees the full set.
		return l.cache.SetJSON(ctx, metaKey, meta, l.ttl)
	})
}

// Invalidate drops a cached board.
func (l *LeaderboardCache) Invalidate(ctx context.Context, period leaderboard.Period, start time.Time) error {
	return l.breaker.Execute(ctx, func(ctx context.Context) error {
		return l.cache.Delete(ctx, l.BoardKey(period, start), l.metaKey(period, start))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Get returns the top limit entries of a cached board, or all of them when
// limit <= 0.
func (l *LeaderboardCache) Get(ctx context.Context, period leaderboard.Period, start time.Time, limit int) (*leaderboard.Board, error) {
	boardKey := l.BoardKey(period, start)
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	var (
		meta    boardMeta
		members []redis.Z
		miss    bool
	)

	err := l.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := l.cache.GetJSON(ctx, l.metaKey(period, start), &meta); err != nil {
			if errors.Is(err, ErrCacheMiss) {
				miss = true
				return nil
			}
			return err
		}

		var err error
		members, err = l.cache.Client().ZRangeWithScores(ctx, boardKey, 0, stop).Result()
		return err
	})
	if err != nil {
		return nil, shared.WrapError("leaderboard_cache", "Get", shared.ErrServiceUnavailable, "cache read failed", err)
	}
	if miss {
		return nil, shared.NewDomainError("leaderboard_cache", "Get", shared.ErrNotFound, "board not cached")
	}

	board := &leaderboard.Board{
		PeriodType:  period,
		PeriodStart: start,
		CompiledAt:  meta.CompiledAt,
		Entries:     make([]leaderboard.Entry, 0, len(members)),
	}
	for i, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		board.Entries = append(board.Entries, leaderboard.Entry{
			PeriodType:  period,
			PeriodStart: start,
			UserID:      userID,
			Rank:        shared.Rank(i + 1),
			MealsSaved:  int(-m.Score),
		})
	}
	return board, nil
}
