package messaging

import (
	"context"
	"fmt"

	rediscache "github.com/mysterybag/impact-hub/internal/infrastructure/persistence/redis"
)

var _ Broker = (*RedisBroker)(nil)

// RedisBroker adapts the Redis client to Broker.
type RedisBroker struct {
	cache *rediscache.Cache
}

// NewRedisBroker creates a new RedisBroker.
func NewRedisBroker(cache *rediscache.Cache) *RedisBroker {
	return &RedisBroker{cache: cache}
}

// Publish implements Broker.
func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.cache.Publish(ctx, channel, payload)
}

// Subscribe implements Broker. The subscription is confirmed before
// returning and closed when ctx is done.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan BrokerMessage, error) {
	ps := b.cache.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan BrokerMessage)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- BrokerMessage{Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
