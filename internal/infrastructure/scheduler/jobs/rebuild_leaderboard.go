// Package jobs contains the scheduled maintenance jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob compiles the current board of every period, stores
// it as the materialized view and refreshes the cache. A cache failure is
// logged and does not fail the run; boards are derived data and the next
// run overwrites them.
type RebuildLeaderboardJob struct {
	source leaderboard.Source
	repo   leaderboard.Repository
	cache  leaderboard.Cache
	cal    timeutil.Calendar
	logger *slog.Logger
	config RebuildLeaderboardConfig
	now    func() time.Time

	lastStats atomic.Pointer[RebuildStats]
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// Periods to rebuild; empty means every period.
	Periods []leaderboard.Period

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Periods: leaderboard.Periods(),
		Timeout: 2 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt     time.Time
	Duration      time.Duration
	BoardsBuilt   int
	EntriesStored int
	CacheFailures int
}

// NewRebuildLeaderboardJob creates a new rebuild job. cache may be nil.
func NewRebuildLeaderboardJob(
	source leaderboard.Source,
	repo leaderboard.Repository,
	cache leaderboard.Cache,
	cal timeutil.Calendar,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Periods) == 0 {
		config.Periods = leaderboard.Periods()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRebuildLeaderboardConfig().Timeout
	}

	return &RebuildLeaderboardJob{
		source: source,
		repo:   repo,
		cache:  cache,
		cal:    cal,
		logger: logger.With("job", "rebuild_leaderboard"),
		config: config,
		now:    time.Now,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Compiles weekly, monthly and all-time leaderboards into storage and cache"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	now := j.now()
	stats := &RebuildStats{StartedAt: now}

	var errs []error
	for _, period := range j.config.Periods {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		board, err := j.rebuild(ctx, period, now, stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", period, err))
			continue
		}

		j.logger.Debug("leaderboard rebuilt",
			"period", period,
			"entries", len(board.Entries),
		)
	}

	stats.Duration = time.Since(now)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard rebuild finished",
		"boards", stats.BoardsBuilt,
		"entries", stats.EntriesStored,
		"cache_failures", stats.CacheFailures,
		"duration", stats.Duration.String(),
	)

	return errors.Join(errs...)
}

func (j *RebuildLeaderboardJob) rebuild(ctx context.Context, period leaderboard.Period, now time.Time, stats *RebuildStats) (*leaderboard.Board, error) {
	start := leaderboard.NormalizeStart(j.cal, period, now)

	standings, err := j.source.Standings(ctx, period, start)
	if err != nil {
		return nil, fmt.Errorf("read standings: %w", err)
	}

	board := leaderboard.Compile(period, start, standings, now.UTC())

	if err := j.repo.SaveBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	stats.BoardsBuilt++
	stats.EntriesStored += len(board.Entries)

	if j.cache != nil {
		if err := j.cache.Put(ctx, board); err != nil {
			stats.CacheFailures++
			j.logger.Warn("failed to cache leaderboard", "period", period, "error", err)
		}
	}
	return &board, nil
}

// LastStats returns the statistics of the most recent run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	return j.lastStats.Load()
}
