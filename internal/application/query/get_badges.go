package query

import (
	"context"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGES QUERY
// Lists the badges a user holds, joined with the catalog.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgesQuery contains the parameters of a badge lookup.
type GetBadgesQuery struct {
	UserID string
}

// EarnedBadgeDTO is one held badge.
type EarnedBadgeDTO struct {
	BadgeID          string    `json:"badge_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	RequirementType  string    `json:"requirement_type"`
	RequirementValue float64   `json:"requirement_value"`
	EarnedAt         time.Time `json:"earned_at"`
}

// GetBadgesResult is the list of held badges, oldest first.
type GetBadgesResult struct {
	UserID string           `json:"user_id"`
	Badges []EarnedBadgeDTO `json:"badges"`
	Total  int              `json:"total"`
}

// GetBadgesHandler handles GetBadgesQuery.
type GetBadgesHandler struct {
	awards  badge.AwardRepository
	catalog badge.CatalogRepository
}

// NewGetBadgesHandler creates a new GetBadgesHandler.
func NewGetBadgesHandler(awards badge.AwardRepository, catalog badge.CatalogRepository) *GetBadgesHandler {
	return &GetBadgesHandler{awards: awards, catalog: catalog}
}

// Handle executes the query.
func (h *GetBadgesHandler) Handle(ctx context.Context, q GetBadgesQuery) (*GetBadgesResult, error) {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return nil, err
	}

	held, err := h.awards.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetBadges", shared.ErrStorageUnavailable, "failed to list badges", err)
	}

	active, err := h.catalog.ListActive(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetBadges", shared.ErrStorageUnavailable, "failed to load catalog", err)
	}
	byID := make(map[string]badge.Badge, len(active))
	for _, b := range active {
		byID[b.ID] = b
	}

	result := &GetBadgesResult{UserID: q.UserID, Badges: make([]EarnedBadgeDTO, 0, len(held))}
	for _, ub := range held {
		b, ok := byID[ub.BadgeID]
		if !ok {
			// Retired badges stay held.
			found, err := h.catalog.GetByID(ctx, ub.BadgeID)
			if err != nil {
				if shared.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			b = *found
		}
		result.Badges = append(result.Badges, EarnedBadgeDTO{
			BadgeID:          b.ID,
			Name:             b.Name,
			Description:      b.Description,
			RequirementType:  string(b.RequirementType),
			RequirementValue: b.RequirementValue,
			EarnedAt:         ub.EarnedAt,
		})
	}
	result.Total = len(result.Badges)

	return result, nil
}
