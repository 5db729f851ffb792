// Package query contains read operations (CQRS - Queries).
// Queries never modify state: reads for unknown users return zero records
// without creating rows.
package query

import (
	"context"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns a user's lifetime impact counters, level and streaks.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the parameters of a progress lookup.
type GetProgressQuery struct {
	UserID string
}

// Validate checks the query.
func (q GetProgressQuery) Validate() error {
	_, err := shared.NewUserID(q.UserID)
	return err
}

// ProgressDTO is the wire view of UserProgress.
type ProgressDTO struct {
	UserID                string     `json:"user_id"`
	TotalMealsSaved       int        `json:"total_meals_saved"`
	TotalCO2Saved         float64    `json:"total_co2_saved"`
	TotalMoneySaved       float64    `json:"total_money_saved"`
	TotalWaterSaved       float64    `json:"total_water_saved"`
	ExperiencePoints      int        `json:"experience_points"`
	Level                 int        `json:"level"`
	LevelStartXP          int        `json:"level_start_xp"`
	NextLevelXP           int        `json:"next_level_xp"`
	ExperienceToNextLevel int        `json:"experience_to_next_level"`
	CurrentStreak         int        `json:"current_streak"`
	LongestStreak         int        `json:"longest_streak"`
	LastActivityAt        *time.Time `json:"last_activity_at,omitempty"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`
}

// NewProgressDTO converts a domain record.
func NewProgressDTO(p progress.UserProgress) ProgressDTO {
	info := progress.ResolveLevel(p.ExperiencePoints)
	dto := ProgressDTO{
		UserID:                p.UserID,
		TotalMealsSaved:       p.TotalMealsSaved,
		TotalCO2Saved:         p.TotalCO2Saved,
		TotalMoneySaved:       p.TotalMoneySaved,
		TotalWaterSaved:       p.TotalWaterSaved,
		ExperiencePoints:      p.ExperiencePoints,
		Level:                 p.Level,
		LevelStartXP:          info.LevelStartXP,
		NextLevelXP:           info.NextLevelXP,
		ExperienceToNextLevel: p.ExperienceToNextLevel,
		CurrentStreak:         p.CurrentStreak,
		LongestStreak:         p.LongestStreak,
	}
	if !p.LastActivityAt.IsZero() {
		t := p.LastActivityAt
		dto.LastActivityAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		dto.UpdatedAt = &t
	}
	return dto
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	store *progress.Store
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(repo progress.Repository) *GetProgressHandler {
	return &GetProgressHandler{store: progress.NewStore(repo, progress.StoreConfig{})}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.store.Get(ctx, q.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetProgress", shared.ErrStorageUnavailable, "failed to load progress", err)
	}

	dto := NewProgressDTO(p)
	return &dto, nil
}
