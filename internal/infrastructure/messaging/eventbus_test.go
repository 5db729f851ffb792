package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/circuitbreaker"
	"github.com/mysterybag/impact-hub/pkg/retry"
)

func levelUp() shared.Event {
	return shared.NewLevelUpEvent("user-1", 1, 2, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
}

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { typed++; return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return nil }))

	require.NoError(t, bus.Publish(levelUp()))
	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent("user-1", "first-rescue", "First Rescue", "", time.Now())))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().Published)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	assert.NoError(t, bus.Publish(levelUp()))
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().HandlerFailure)
}

func TestInMemoryEventBus_CloseWaitsForAsyncHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(levelUp()))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(10), handled.Load())
	assert.ErrorIs(t, bus.Publish(levelUp()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis bus over a fake broker
// ─────────────────────────────────────────────────────────────────────────────

type fakeBroker struct {
	mu        sync.Mutex
	published [][]byte
	failures  int
	inbox     chan BrokerMessage
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{inbox: make(chan BrokerMessage, 8)}
}

func (f *fakeBroker) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker down")
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan BrokerMessage, error) {
	return f.inbox, nil
}

func (f *fakeBroker) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.published...)
}

func newTestRedisBus(t *testing.T, broker *fakeBroker, breaker *circuitbreaker.CircuitBreaker) *RedisEventBus {
	t.Helper()

	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Broker:         broker,
		InstanceID:     "instance-a",
		Breaker:        breaker,
		Retrier:        retry.New(retry.WithMaxAttempts(1)),
		LocalBusConfig: InMemoryEventBusConfig{AsyncMode: false},
	})
	require.NoError(t, err)
	return bus
}

func TestRedisEventBus_PublishesEnvelope(t *testing.T) {
	broker := newFakeBroker()
	bus := newTestRedisBus(t, broker, nil)

	var local int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { local++; return nil }))
	require.NoError(t, bus.Publish(levelUp()))
	require.NoError(t, bus.Close())

	assert.Equal(t, 1, local)
	sent := broker.sent()
	require.Len(t, sent, 1)

	var env eventEnvelope
	require.NoError(t, json.Unmarshal(sent[0], &env))
	assert.Equal(t, "instance-a", env.InstanceID)
	assert.Equal(t, shared.EventLevelUp, env.EventType)
	assert.Equal(t, "user-1", env.AggregateID)
	assert.EqualValues(t, 2, env.Payload["new_level"])
}

func TestRedisEventBus_DeliversRemoteAndSkipsOwn(t *testing.T) {
	broker := newFakeBroker()
	bus := newTestRedisBus(t, broker, nil)
	defer bus.Close()

	received := make(chan shared.Event, 4)
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		received <- e
		return nil
	}))

	own, err := encodeEnvelope("instance-a", levelUp())
	require.NoError(t, err)
	remote, err := encodeEnvelope("instance-b", shared.NewLevelUpEvent("user-2", 2, 3, time.Now()))
	require.NoError(t, err)

	broker.inbox <- BrokerMessage{Payload: own}
	broker.inbox <- BrokerMessage{Payload: remote}

	select {
	case e := <-received:
		assert.Equal(t, "user-2", e.AggregateID())
		assert.EqualValues(t, 3, e.Payload()["new_level"])
	case <-time.After(time.Second):
		t.Fatal("remote notification not delivered")
	}

	select {
	case e := <-received:
		t.Fatalf("unexpected delivery for %s", e.AggregateID())
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRedisEventBus_BrokerOutageDoesNotFailPublish(t *testing.T) {
	broker := newFakeBroker()
	broker.failures = 100
	breaker := circuitbreaker.New("test-broker", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Minute))
	bus := newTestRedisBus(t, broker, breaker)

	var local atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { local.Add(1); return nil }))

	for i := 0; i < 5; i++ {
		assert.NoError(t, bus.Publish(levelUp()))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(5), local.Load())
	assert.Empty(t, broker.sent())
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}
