package command

import (
	"context"

	"github.com/mysterybag/impact-hub/internal/domain/activity"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// Stores are the repositories bound to one unit of work.
type Stores struct {
	Progress   progress.Repository
	Challenges challenge.Repository
	Awards     badge.AwardRepository
	Activity   activity.Repository
}

// UnitOfWork runs fn so that every write made through the given Stores is
// committed together or not at all. userID scopes any locking to one user.
type UnitOfWork interface {
	WithinTx(ctx context.Context, userID string, fn func(ctx context.Context, s Stores) error) error
}

// EventPublisher delivers outcome notifications. Publishing is best-effort.
type EventPublisher interface {
	Publish(event shared.Event) error
}
