package impact

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

func total(v float64) *float64 { return &v }

func validEvent(orderTotal *float64) OrderCompleted {
	return OrderCompleted{
		EventID:    "evt-1",
		UserID:     "user-1",
		OrderTotal: orderTotal,
		OccurredAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCalculate_FixedConstants(t *testing.T) {
	d, err := Calculate(validEvent(total(1000)))
	require.NoError(t, err)

	assert.Equal(t, 1, d.Meals)
	assert.Equal(t, 2.5, d.CO2Kg)
	assert.Equal(t, 1000.0, d.WaterL)
	assert.Equal(t, 700.0, d.Money)
	assert.Equal(t, 10, d.Experience)
}

func TestCalculate_MoneyRounding(t *testing.T) {
	d, err := Calculate(validEvent(total(0.1)))
	require.NoError(t, err)
	assert.Equal(t, 0.07, d.Money)

	d, err = Calculate(validEvent(total(333.33)))
	require.NoError(t, err)
	assert.Equal(t, 233.33, d.Money)
}

func TestCalculate_ZeroTotalIsValid(t *testing.T) {
	d, err := Calculate(validEvent(total(0)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Money)
	assert.Equal(t, 1, d.Meals)
}

func TestCalculate_Rejections(t *testing.T) {
	cases := map[string]OrderCompleted{
		"negative total": validEvent(total(-10)),
		"missing total":  validEvent(nil),
		"nan total":      validEvent(total(math.NaN())),
		"inf total":      validEvent(total(math.Inf(1))),
	}
	noEvent := validEvent(total(5))
	noEvent.EventID = ""
	cases["missing event id"] = noEvent
	noUser := validEvent(total(5))
	noUser.UserID = " "
	cases["missing user id"] = noUser
	noTime := validEvent(total(5))
	noTime.OccurredAt = time.Time{}
	cases["missing occurred_at"] = noTime

	for name, evt := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := Calculate(evt)
			assert.True(t, shared.IsValidation(err), "got %v", err)
			assert.True(t, d.IsZero())
		})
	}
}
