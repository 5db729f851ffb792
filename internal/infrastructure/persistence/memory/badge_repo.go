package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var (
	_ badge.CatalogRepository = (*CatalogRepository)(nil)
	_ badge.AwardRepository   = (*AwardRepository)(nil)
)

// ─────────────────────────────────────────────────────────────────────────────
// CATALOG
// ─────────────────────────────────────────────────────────────────────────────

type catalogTable struct {
	badges []badge.Badge
}

func newCatalogTable(badges []badge.Badge) *catalogTable {
	return &catalogTable{badges: append([]badge.Badge(nil), badges...)}
}

// CatalogRepository implements badge.CatalogRepository over a fixed list.
type CatalogRepository struct {
	t *catalogTable
}

// ListActive implements badge.CatalogRepository.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]badge.Badge, error) {
	out := make([]badge.Badge, 0, len(r.t.badges))
	for _, b := range r.t.badges {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetByID implements badge.CatalogRepository.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*badge.Badge, error) {
	for _, b := range r.t.badges {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, shared.ErrBadgeNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// AWARDS
// ─────────────────────────────────────────────────────────────────────────────

type awardKey struct {
	userID  string
	badgeID string
}

type awardTable struct {
	mu   sync.RWMutex
	rows map[awardKey]badge.UserBadge
}

func newAwardTable() *awardTable {
	return &awardTable{rows: make(map[awardKey]badge.UserBadge)}
}

// AwardRepository implements badge.AwardRepository. The map key plays the
// role of the (user_id, badge_id) unique constraint.
type AwardRepository struct {
	t *awardTable
	j *journal
}

// NewAwardRepository creates a standalone repository, mainly for tests.
func NewAwardRepository() *AwardRepository {
	return &AwardRepository{t: newAwardTable()}
}

// Insert implements badge.AwardRepository.
func (r *AwardRepository) Insert(ctx context.Context, award badge.UserBadge) (bool, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := awardKey{userID: award.UserID, badgeID: award.BadgeID}
	if _, exists := r.t.rows[k]; exists {
		return false, nil
	}
	r.t.rows[k] = award

	r.j.record(func() {
		r.t.mu.Lock()
		delete(r.t.rows, k)
		r.t.mu.Unlock()
	})
	return true, nil
}

// ListByUser implements badge.AwardRepository.
func (r *AwardRepository) ListByUser(ctx context.Context, userID string) ([]badge.UserBadge, error) {
	r.t.mu.RLock()
	out := make([]badge.UserBadge, 0)
	for k, ub := range r.t.rows {
		if k.userID == userID {
			out = append(out, ub)
		}
	}
	r.t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].BadgeID < out[j].BadgeID
	})
	return out, nil
}
