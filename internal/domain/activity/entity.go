// Package activity is the append-only audit log of accepted events. The
// first insert of an event_id is the idempotency gate for the whole
// pipeline; rows are never updated and are pruned after the retention window.
package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names the kind of recorded activity.
type Type string

const (
	TypeOrderCompleted Type = "order_completed"
)

// DefaultRetention is how long entries are kept for duplicate detection.
const DefaultRetention = 90 * 24 * time.Hour

// Entry is one accepted event.
type Entry struct {
	ID           string
	EventID      string
	UserID       string
	ActivityType Type
	Data         Data
	PointsEarned int
	RecordedAt   time.Time
}

// Data is the JSON payload stored with an entry. It keeps enough of the
// outcome to answer a duplicate delivery without recomputing anything.
type Data struct {
	OrderTotal          float64   `json:"order_total"`
	OccurredAt          time.Time `json:"occurred_at"`
	MealsSaved          int       `json:"meals_saved"`
	CO2Saved            float64   `json:"co2_saved"`
	WaterSaved          float64   `json:"water_saved"`
	MoneySaved          float64   `json:"money_saved"`
	LevelAfter          int       `json:"level_after"`
	CompletedChallenges []string  `json:"completed_challenges,omitempty"`
	AwardedBadges       []string  `json:"awarded_badges,omitempty"`
}

// Marshal encodes the payload for storage.
func (d Data) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalData decodes a stored payload.
func UnmarshalData(raw []byte) (Data, error) {
	var d Data
	if len(raw) == 0 {
		return d, nil
	}
	err := json.Unmarshal(raw, &d)
	return d, err
}

// NewEntry creates an entry with a fresh row id.
func NewEntry(eventID, userID string, activityType Type, data Data, points int, at time.Time) Entry {
	return Entry{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       userID,
		ActivityType: activityType,
		Data:         data,
		PointsEarned: points,
		RecordedAt:   at,
	}
}
