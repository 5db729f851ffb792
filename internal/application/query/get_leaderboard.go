package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Serves a ranked board for a period. Tries the cache, then the
// materialized board, then compiles from the source tables.
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// GetLeaderboardQuery contains the parameters of a leaderboard request.
type GetLeaderboardQuery struct {
	// Period is weekly, monthly or all_time.
	Period string

	// Start is any instant inside the wanted period. Zero means now.
	Start time.Time

	// Limit is the number of entries (default 20, max 100).
	Limit int
}

// Validate normalizes and checks the query.
func (q *GetLeaderboardQuery) Validate() (leaderboard.Period, error) {
	period, err := leaderboard.ParsePeriod(q.Period)
	if err != nil {
		return "", err
	}
	if q.Limit < 0 {
		return "", shared.ValidationError("query", "GetLeaderboard", "limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultLeaderboardLimit
	}
	if q.Limit > MaxLeaderboardLimit {
		q.Limit = MaxLeaderboardLimit
	}
	return period, nil
}

// LeaderboardEntryDTO is one ranked row.
type LeaderboardEntryDTO struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	MealsSaved int    `json:"meals_saved"`
}

// GetLeaderboardResult is the served board.
type GetLeaderboardResult struct {
	PeriodType  string                `json:"period_type"`
	PeriodStart string                `json:"period_start,omitempty"`
	Entries     []LeaderboardEntryDTO `json:"entries"`
	CompiledAt  time.Time             `json:"compiled_at"`

	// Source is where the board came from: cache, materialized or live.
	Source string `json:"source"`
}

const (
	SourceCache        = "cache"
	SourceMaterialized = "materialized"
	SourceLive         = "live"
)

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	cache  leaderboard.Cache
	repo   leaderboard.Repository
	source leaderboard.Source
	cal    timeutil.Calendar
	logger *slog.Logger
	now    func() time.Time
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. cache and
// repo may be nil.
func NewGetLeaderboardHandler(
	cache leaderboard.Cache,
	repo leaderboard.Repository,
	source leaderboard.Source,
	cal timeutil.Calendar,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		cache:  cache,
		repo:   repo,
		source: source,
		cal:    cal,
		logger: logger,
		now:    time.Now,
	}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	period, err := q.Validate()
	if err != nil {
		return nil, err
	}

	at := q.Start
	if at.IsZero() {
		at = h.now()
	}
	start := leaderboard.NormalizeStart(h.cal, period, at)

	if h.cache != nil {
		board, err := h.cache.Get(ctx, period, start, q.Limit)
		if err == nil {
			return h.buildResult(board, q.Limit, SourceCache), nil
		}
		if !shared.IsNotFound(err) {
			h.logger.Debug("leaderboard cache unavailable", "period", period, "error", err)
		}
	}

	if h.repo != nil {
		board, err := h.repo.GetBoard(ctx, period, start, q.Limit)
		if err == nil {
			return h.buildResult(board, q.Limit, SourceMaterialized), nil
		}
		if !shared.IsNotFound(err) {
			h.logger.Warn("failed to read materialized leaderboard", "period", period, "error", err)
		}
	}

	standings, err := h.source.Standings(ctx, period, start)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrStorageUnavailable, "failed to compile leaderboard", err)
	}
	board := leaderboard.Compile(period, start, standings, h.now().UTC())

	return h.buildResult(&board, q.Limit, SourceLive), nil
}

func (h *GetLeaderboardHandler) buildResult(board *leaderboard.Board, limit int, source string) *GetLeaderboardResult {
	top := board.Top(limit)
	entries := make([]LeaderboardEntryDTO, len(top))
	for i, e := range top {
		entries[i] = LeaderboardEntryDTO{
			Rank:       e.Rank.Int(),
			UserID:     e.UserID,
			MealsSaved: e.MealsSaved,
		}
	}

	result := &GetLeaderboardResult{
		PeriodType: string(board.PeriodType),
		Entries:    entries,
		CompiledAt: board.CompiledAt,
		Source:     source,
	}
	if !board.PeriodStart.IsZero() {
		result.PeriodStart = h.cal.FormatDateStr(board.PeriodStart)
	}
	return result
}
