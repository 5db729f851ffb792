package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

var _ leaderboard.Repository = (*LeaderboardRepository)(nil)

// allTimeStart stands in for the zero period start of all-time boards in the
// DATE column.
const allTimeStart = "1970-01-01"

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
	cal  timeutil.Calendar
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection, cal timeutil.Calendar) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn, cal: cal}
}

func (r *LeaderboardRepository) startKey(start time.Time) string {
	if start.IsZero() {
		return allTimeStart
	}
	return r.cal.FormatDateStr(start)
}

// SaveBoard replaces the stored rows for the board's period in one
// transaction, so readers never see a half-written board.
func (r *LeaderboardRepository) SaveBoard(ctx context.Context, board leaderboard.Board) error {
	start := r.startKey(board.PeriodStart)

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM leaderboard_entries WHERE period_type = $1 AND period_start = $2::date
		`, string(board.PeriodType), start)
		if err != nil {
			return fmt.Errorf("failed to clear board: %w", err)
		}

		if len(board.Entries) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range board.Entries {
			batch.Queue(`
				INSERT INTO leaderboard_entries (period_type, period_start, user_id, rank, meals_saved, compiled_at)
				VALUES ($1, $2::date, $3, $4, $5, $6)
			`, string(board.PeriodType), start, e.UserID, e.Rank.Int(), e.MealsSaved, board.CompiledAt)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range board.Entries {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}
		return nil
	})
	return storageError("leaderboard", "SaveBoard", err)
}

// GetBoard implements leaderboard.Repository.
func (r *LeaderboardRepository) GetBoard(ctx context.Context, period leaderboard.Period, start time.Time, limit int) (*leaderboard.Board, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, rank, meals_saved, compiled_at
		FROM leaderboard_entries
		WHERE period_type = $1 AND period_start = $2::date
		ORDER BY rank
		LIMIT NULLIF($3::int, 0)
	`, string(period), r.startKey(start), limit)
	if err != nil {
		return nil, storageError("leaderboard", "GetBoard", err)
	}
	defer rows.Close()

	board := &leaderboard.Board{PeriodType: period, PeriodStart: start}
	for rows.Next() {
		var (
			e    leaderboard.Entry
			rank int
		)
		if err := rows.Scan(&e.UserID, &rank, &e.MealsSaved, &board.CompiledAt); err != nil {
			return nil, storageError("leaderboard", "GetBoard", err)
		}
		e.PeriodType = period
		e.PeriodStart = start
		e.Rank = shared.Rank(rank)
		board.Entries = append(board.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("leaderboard", "GetBoard", err)
	}

	if len(board.Entries) == 0 {
		return nil, shared.NewDomainError("leaderboard", "GetBoard", shared.ErrNotFound, "board not materialized")
	}
	return board, nil
}
