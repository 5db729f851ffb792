package leaderboard

import (
	"context"
	"time"
)

// Source reads the standings a board is compiled from.
type Source interface {
	// Standings returns every user's score for the period starting at start.
	Standings(ctx context.Context, period Period, start time.Time) ([]Standing, error)
}

// Repository stores materialized boards.
type Repository interface {
	// SaveBoard replaces the stored board for (period, start).
	SaveBoard(ctx context.Context, board Board) error

	// GetBoard returns a stored board or an error matching shared.ErrNotFound.
	GetBoard(ctx context.Context, period Period, start time.Time, limit int) (*Board, error)
}

// Cache is a best-effort fast path in front of Repository.
type Cache interface {
	Put(ctx context.Context, board Board) error
	Get(ctx context.Context, period Period, start time.Time, limit int) (*Board, error)
}
