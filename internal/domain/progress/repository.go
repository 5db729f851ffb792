package progress

import (
	"context"
)

// Repository is the storage port for UserProgress. Implementations must make
// Create and CompareAndSwap atomic with respect to concurrent callers.
type Repository interface {
	// Get returns the stored record or an error matching shared.ErrNotFound.
	Get(ctx context.Context, userID string) (*UserProgress, error)

	// Create inserts the first record for a user with Version 1. If a row
	// already exists it returns an error matching shared.ErrAlreadyExists.
	Create(ctx context.Context, p *UserProgress) error

	// CompareAndSwap writes p only if the stored version still equals
	// expectedVersion, storing expectedVersion+1. Otherwise it returns an
	// error matching shared.ErrConcurrentModification.
	CompareAndSwap(ctx context.Context, p *UserProgress, expectedVersion int64) error

	// ListTopByMeals returns up to limit records ordered by meals saved,
	// highest first, ties by user id. A limit <= 0 returns every row.
	ListTopByMeals(ctx context.Context, limit int) ([]UserProgress, error)
}
