package badge

import (
	"context"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// Ledger awards badges. It relies on the storage uniqueness constraint and
// never checks for an existing row first.
type Ledger struct {
	awards  AwardRepository
	catalog map[string]Badge
}

// NewLedger creates a ledger over the given catalog snapshot.
func NewLedger(awards AwardRepository, catalog []Badge) *Ledger {
	idx := make(map[string]Badge, len(catalog))
	for _, b := range catalog {
		idx[b.ID] = b
	}
	return &Ledger{awards: awards, catalog: idx}
}

// Award grants badgeID to userID. A repeated award, concurrent or not,
// returns Awarded=false rather than an error.
func (l *Ledger) Award(ctx context.Context, userID, badgeID string, at time.Time) (AwardResult, error) {
	b, ok := l.catalog[badgeID]
	if !ok {
		return AwardResult{}, shared.ErrBadgeNotFound
	}

	inserted, err := l.awards.Insert(ctx, UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: at})
	if err != nil {
		return AwardResult{}, err
	}
	return AwardResult{Awarded: inserted, Badge: b}, nil
}
