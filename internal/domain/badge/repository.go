package badge

import (
	"context"
)

// CatalogRepository reads the badge catalog.
type CatalogRepository interface {
	// ListActive returns every active badge.
	ListActive(ctx context.Context) ([]Badge, error)

	// GetByID returns a badge or an error matching shared.ErrNotFound.
	GetByID(ctx context.Context, id string) (*Badge, error)
}

// AwardRepository persists earned badges.
type AwardRepository interface {
	// Insert stores the award. It returns false, without error, when the
	// (user_id, badge_id) pair already exists.
	Insert(ctx context.Context, award UserBadge) (bool, error)

	// ListByUser returns a user's badges, oldest first.
	ListByUser(ctx context.Context, userID string) ([]UserBadge, error)
}
