package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ leaderboard.Repository = (*LeaderboardRepository)(nil)

type boardKey struct {
	period leaderboard.Period
	start  int64
}

type boardTable struct {
	mu     sync.RWMutex
	boards map[boardKey]leaderboard.Board
}

func newBoardTable() *boardTable {
	return &boardTable{boards: make(map[boardKey]leaderboard.Board)}
}

// LeaderboardRepository implements leaderboard.Repository.
type LeaderboardRepository struct {
	t *boardTable
}

// SaveBoard implements leaderboard.Repository.
func (r *LeaderboardRepository) SaveBoard(ctx context.Context, board leaderboard.Board) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	stored := board
	stored.Entries = append([]leaderboard.Entry(nil), board.Entries...)
	r.t.boards[boardKey{period: board.PeriodType, start: board.PeriodStart.Unix()}] = stored
	return nil
}

// GetBoard implements leaderboard.Repository.
func (r *LeaderboardRepository) GetBoard(ctx context.Context, period leaderboard.Period, start time.Time, limit int) (*leaderboard.Board, error) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()

	b, ok := r.t.boards[boardKey{period: period, start: start.Unix()}]
	if !ok {
		return nil, shared.NewDomainError("leaderboard", "GetBoard", shared.ErrNotFound, "board not materialized")
	}
	out := b
	out.Entries = append([]leaderboard.Entry(nil), b.Top(limit)...)
	return &out, nil
}
