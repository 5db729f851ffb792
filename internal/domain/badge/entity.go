// Package badge holds the badge catalog, the pure evaluator and the award
// ledger. A user holds each badge at most once; the storage uniqueness
// constraint on (user_id, badge_id) is what guarantees it.
package badge

import (
	"time"

	"github.com/gosimple/slug"
)

// RequirementType names the progress field a badge is measured against.
type RequirementType string

const (
	RequirementMealsSaved RequirementType = "meals_saved"
	RequirementCO2Saved   RequirementType = "co2_saved"
	RequirementMoneySaved RequirementType = "money_saved"
	RequirementStreak     RequirementType = "streak"
	RequirementLevel      RequirementType = "level"
)

// IsValid reports whether the requirement type is known.
func (r RequirementType) IsValid() bool {
	switch r {
	case RequirementMealsSaved, RequirementCO2Saved, RequirementMoneySaved, RequirementStreak, RequirementLevel:
		return true
	}
	return false
}

// Badge is a catalog entry. The catalog is curated outside the engine and
// treated as immutable at runtime.
type Badge struct {
	ID               string
	Name             string
	Description      string
	RequirementType  RequirementType
	RequirementValue float64
	IsActive         bool
}

// UserBadge records that a user earned a badge.
type UserBadge struct {
	UserID   string
	BadgeID  string
	EarnedAt time.Time
}

// AwardResult is returned by the ledger. Awarded is false when the user
// already held the badge.
type AwardResult struct {
	Awarded bool
	Badge   Badge
}

// NewBadge builds an active catalog entry whose id is the slug of its name.
func NewBadge(name, description string, req RequirementType, value float64) Badge {
	return Badge{
		ID:               slug.Make(name),
		Name:             name,
		Description:      description,
		RequirementType:  req,
		RequirementValue: value,
		IsActive:         true,
	}
}

// DefaultCatalog is the seed catalog installed by the first migration.
func DefaultCatalog() []Badge {
	return []Badge{
		NewBadge("First Rescue", "Saved your first meal from going to waste", RequirementMealsSaved, 1),
		NewBadge("Meal Saver", "Saved 10 meals", RequirementMealsSaved, 10),
		NewBadge("Food Hero", "Saved 50 meals", RequirementMealsSaved, 50),
		NewBadge("Waste Warrior", "Saved 100 meals", RequirementMealsSaved, 100),
		NewBadge("Carbon Cutter", "Prevented 25 kg of CO2 emissions", RequirementCO2Saved, 25),
		NewBadge("Climate Champion", "Prevented 250 kg of CO2 emissions", RequirementCO2Saved, 250),
		NewBadge("Smart Shopper", "Saved KSh 5,000 on food", RequirementMoneySaved, 5000),
		NewBadge("Big Saver", "Saved KSh 50,000 on food", RequirementMoneySaved, 50000),
		NewBadge("On a Roll", "Rescued food 3 days in a row", RequirementStreak, 3),
		NewBadge("Week Warrior", "Rescued food 7 days in a row", RequirementStreak, 7),
		NewBadge("Rising Star", "Reached level 5", RequirementLevel, 5),
		NewBadge("Legend", "Reached level 10", RequirementLevel, 10),
	}
}
