package eventhandler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/internal/infrastructure/messaging"
)

// payloadOnly mimics an event decoded from another instance.
type payloadOnly struct {
	shared.BaseEvent
	payload map[string]interface{}
}

func (e payloadOnly) Payload() map[string]interface{} { return e.payload }

func TestNotificationHandler_CountsEveryType(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer bus.Close()

	h := NewNotificationHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, h.Register(bus))

	at := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", 1, 2, at)))
	require.NoError(t, bus.Publish(shared.NewChallengeCompletedEvent("u1", "meals_saved", 5, at, at)))
	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent("u1", "first-rescue", "First Rescue", "", at)))

	stats := h.Stats()
	assert.Equal(t, int64(1), stats.LevelUps)
	assert.Equal(t, int64(1), stats.ChallengesCompleted)
	assert.Equal(t, int64(1), stats.BadgesEarned)
	assert.Zero(t, stats.Malformed)
}

func TestNotificationHandler_RemotePayload(t *testing.T) {
	h := NewNotificationHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	remote := payloadOnly{
		BaseEvent: shared.NewBaseEvent(shared.EventBadgeEarned, "", time.Now()),
		payload:   map[string]interface{}{"user_id": "u9", "badge_id": "meal-saver"},
	}
	require.NoError(t, h.Handle(remote))
	assert.Equal(t, int64(1), h.Stats().BadgesEarned)

	broken := payloadOnly{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, "", time.Now()),
		payload:   map[string]interface{}{},
	}
	assert.Error(t, h.Handle(broken))
	assert.Equal(t, int64(1), h.Stats().Malformed)
	assert.Zero(t, h.Stats().LevelUps)
}
