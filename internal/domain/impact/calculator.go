// Package impact maps a completed order to the environmental and economic
// impact it represents. Everything here is pure: no state, no I/O.
package impact

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// Per-meal constants. Every completed bag counts as one rescued meal.
const (
	CO2PerMealKg        = 2.5
	WaterPerMealLiters  = 1000.0
	ExperiencePerOrder  = 10
	MealsPerOrder       = 1
	moneySavedRateExact = "0.7"
)

// moneySavedRate is the share of the order total counted as saved, since
// bags sell at roughly 30% of retail value.
var moneySavedRate = decimal.RequireFromString(moneySavedRateExact)

// OrderCompleted is the inbound event emitted by the checkout flow when an
// order settles. OrderTotal is nil when the producer omitted it.
type OrderCompleted struct {
	EventID    string
	UserID     string
	OrderTotal *float64
	OccurredAt time.Time
}

// Delta is the set of increments derived from one completed order.
type Delta struct {
	Meals      int
	CO2Kg      float64
	WaterL     float64
	Money      float64
	Experience int
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Calculate validates the event and returns its impact delta. Money is
// computed in decimal and rounded to two places so repeated orders do not
// accumulate binary rounding noise.
func Calculate(evt OrderCompleted) (Delta, error) {
	if err := Validate(evt); err != nil {
		return Delta{}, err
	}

	money, _ := decimal.NewFromFloat(*evt.OrderTotal).
		Mul(moneySavedRate).
		Round(2).
		Float64()

	return Delta{
		Meals:      MealsPerOrder,
		CO2Kg:      CO2PerMealKg,
		WaterL:     WaterPerMealLiters,
		Money:      money,
		Experience: ExperiencePerOrder,
	}, nil
}

// Validate checks the inbound event without computing anything.
func Validate(evt OrderCompleted) error {
	if _, err := shared.NewEventID(evt.EventID); err != nil {
		return shared.WrapError("impact", "Validate", shared.ErrValidation, "invalid event_id", err)
	}
	if _, err := shared.NewUserID(evt.UserID); err != nil {
		return shared.WrapError("impact", "Validate", shared.ErrValidation, "invalid user_id", err)
	}
	if evt.OccurredAt.IsZero() {
		return shared.ValidationError("impact", "Validate", "occurred_at is required")
	}
	if evt.OrderTotal == nil {
		return shared.ValidationError("impact", "Validate", "order_total is required")
	}
	total := *evt.OrderTotal
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return shared.ValidationError("impact", "Validate", "order_total must be a finite number")
	}
	if total < 0 {
		return shared.WrapError("impact", "Validate", shared.ErrValidation, "order_total must be >= 0", shared.ErrNegativeValue)
	}
	return nil
}
