// Package challenge tracks per-user weekly goals. There is at most one
// WeeklyChallenge per (user, challenge type, ISO week) and its completion
// flips false to true exactly once.
package challenge

import (
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/impact"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// Type names a weekly challenge kind.
type Type string

const (
	TypeMealsSaved Type = "meals_saved"
	TypeCO2Saved   Type = "co2_saved"
)

// Definition is the fixed configuration of one challenge type.
type Definition struct {
	Type Type
	Goal float64
	// Increment extracts this challenge's progress from an impact delta.
	Increment func(impact.Delta) float64
}

// DefaultDefinitions returns the built-in challenge set.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Type:      TypeMealsSaved,
			Goal:      5,
			Increment: func(d impact.Delta) float64 { return float64(d.Meals) },
		},
		{
			Type:      TypeCO2Saved,
			Goal:      12.5,
			Increment: func(d impact.Delta) float64 { return d.CO2Kg },
		},
	}
}

// Key identifies one weekly challenge row.
type Key struct {
	UserID    string
	Type      Type
	WeekStart time.Time
}

// WeeklyChallenge is one user's progress toward a weekly goal.
type WeeklyChallenge struct {
	ID            string
	UserID        string
	ChallengeType Type
	WeekStart     time.Time
	GoalValue     float64
	CurrentValue  float64
	IsCompleted   bool
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key returns the row's identity.
func (c WeeklyChallenge) Key() Key {
	return Key{UserID: c.UserID, Type: c.ChallengeType, WeekStart: c.WeekStart}
}

// GoalReached reports whether the current value meets the goal.
func (c WeeklyChallenge) GoalReached() bool {
	return c.CurrentValue >= c.GoalValue
}

// Remaining returns how much is left to reach the goal.
func (c WeeklyChallenge) Remaining() float64 {
	if c.GoalReached() {
		return 0
	}
	return c.GoalValue - c.CurrentValue
}

// Empty returns an unsaved zero row, used when reads find nothing.
func Empty(key Key, goal float64) WeeklyChallenge {
	return WeeklyChallenge{
		UserID:        key.UserID,
		ChallengeType: key.Type,
		WeekStart:     key.WeekStart,
		GoalValue:     goal,
	}
}

// Catalog indexes definitions by type.
type Catalog map[Type]Definition

// NewCatalog builds a catalog from definitions.
func NewCatalog(defs []Definition) Catalog {
	c := make(Catalog, len(defs))
	for _, d := range defs {
		c[d.Type] = d
	}
	return c
}

// Lookup resolves a type or fails with a validation error.
func (c Catalog) Lookup(t Type) (Definition, error) {
	d, ok := c[t]
	if !ok {
		return Definition{}, shared.WrapError("challenge", "Lookup", shared.ErrInvalidInput,
			"unknown challenge type "+string(t), shared.ErrUnknownChallengeType)
	}
	return d, nil
}
