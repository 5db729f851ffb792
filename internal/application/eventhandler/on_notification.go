// Package eventhandler contains consumers of outcome notifications.
package eventhandler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON NOTIFICATION HANDLER
// Consumes LevelUp, ChallengeCompleted and BadgeEarned notifications,
// whether published in-process or received from another instance.
// Remote events only carry a payload map, so fields are read from
// Payload() instead of asserting concrete types.
// ═══════════════════════════════════════════════════════════════════════════

// Subscriber is the part of the event bus the handler needs.
type Subscriber interface {
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error
}

// NotificationStats counts handled notifications per type.
type NotificationStats struct {
	LevelUps            int64
	ChallengesCompleted int64
	BadgesEarned        int64
	Malformed           int64
}

// NotificationHandler logs outcome notifications and keeps counters.
type NotificationHandler struct {
	logger *slog.Logger

	mu    sync.Mutex
	stats NotificationStats
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{logger: logger.With("handler", "on_notification")}
}

// Register subscribes the handler to every outcome notification type.
func (h *NotificationHandler) Register(bus Subscriber) error {
	for _, t := range []shared.EventType{shared.EventLevelUp, shared.EventChallengeCompleted, shared.EventBadgeEarned} {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle implements shared.EventHandler.
func (h *NotificationHandler) Handle(event shared.Event) error {
	payload := event.Payload()
	userID, _ := payload["user_id"].(string)
	if userID == "" {
		userID = event.AggregateID()
	}
	if userID == "" {
		h.count(func(s *NotificationStats) { s.Malformed++ })
		return fmt.Errorf("notification %s without user_id", event.EventType())
	}

	log := h.logger.With("user_id", userID, "occurred_at", event.OccurredAt())

	switch event.EventType() {
	case shared.EventLevelUp:
		h.count(func(s *NotificationStats) { s.LevelUps++ })
		log.Info("user leveled up",
			"old_level", payload["old_level"],
			"new_level", payload["new_level"],
		)

	case shared.EventChallengeCompleted:
		h.count(func(s *NotificationStats) { s.ChallengesCompleted++ })
		log.Info("weekly challenge completed",
			"challenge_type", payload["challenge_type"],
			"goal_value", payload["goal_value"],
			"week_start", payload["week_start"],
		)

	case shared.EventBadgeEarned:
		h.count(func(s *NotificationStats) { s.BadgesEarned++ })
		log.Info("badge earned",
			"badge_id", payload["badge_id"],
			"name", payload["name"],
		)

	default:
		log.Debug("ignoring notification", "event_type", event.EventType())
	}

	return nil
}

// Stats returns a snapshot of the counters.
func (h *NotificationHandler) Stats() NotificationStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *NotificationHandler) count(fn func(*NotificationStats)) {
	h.mu.Lock()
	fn(&h.stats)
	h.mu.Unlock()
}
