package activity

import (
	"context"
	"time"
)

// Repository is the storage port for the activity log.
type Repository interface {
	// RecordIfNew inserts the entry keyed on its event id. accepted is false,
	// without error, when the event id was already recorded.
	RecordIfNew(ctx context.Context, entry Entry) (accepted bool, err error)

	// GetByEventID returns an entry or an error matching shared.ErrNotFound.
	GetByEventID(ctx context.Context, eventID string) (*Entry, error)

	// ListByUser returns a user's most recent entries, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)

	// PruneOlderThan deletes entries recorded before cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
