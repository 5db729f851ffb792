package shared

import (
	"time"
)

// EventType represents the type of outbound domain event.
type EventType string

// Outcome notifications emitted after an order completion commits.
const (
	EventLevelUp            EventType = "progress.level_up"
	EventChallengeCompleted EventType = "challenge.completed"
	EventBadgeEarned        EventType = "badge.earned"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler consumes a published event.
type EventHandler func(event Event) error

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID, normally the order event id.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Outcome Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a user's level rises.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// ChallengeCompletedEvent is emitted once per (user, type, week) when the
// weekly goal is reached.
type ChallengeCompletedEvent struct {
	BaseEvent
	UserID        string    `json:"user_id"`
	ChallengeType string    `json:"challenge_type"`
	GoalValue     float64   `json:"goal_value"`
	WeekStart     time.Time `json:"week_start"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"challenge_type": e.ChallengeType,
		"goal_value":     e.GoalValue,
		"week_start":     e.WeekStart.Format("2006-01-02"),
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(userID, challengeType string, goal float64, weekStart, at time.Time) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:     NewBaseEvent(EventChallengeCompleted, userID, at),
		UserID:        userID,
		ChallengeType: challengeType,
		GoalValue:     goal,
		WeekStart:     weekStart,
	}
}

// BadgeEarnedEvent is emitted when the award ledger inserts a new badge row.
type BadgeEarnedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	BadgeID     string `json:"badge_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"badge_id":    e.BadgeID,
		"name":        e.Name,
		"description": e.Description,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(userID, badgeID, name, description string, at time.Time) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent:   NewBaseEvent(EventBadgeEarned, userID, at),
		UserID:      userID,
		BadgeID:     badgeID,
		Name:        name,
		Description: description,
	}
}
