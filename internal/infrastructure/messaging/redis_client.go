package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GoRedisClient adapts a go-redis client to RedisClient.
type GoRedisClient struct {
	client redis.UniversalClient
}

// NewGoRedisClient wraps client.
func NewGoRedisClient(client redis.UniversalClient) *GoRedisClient {
	return &GoRedisClient{client: client}
}

// Publish sends message to channel.
func (c *GoRedisClient) Publish(ctx context.Context, channel string, message string) error {
	return c.client.Publish(ctx, channel, message).Err()
}

// Subscribe confirms the subscription and streams messages until ctx is
// cancelled.
func (c *GoRedisClient) Subscribe(ctx context.Context, channel string) (<-chan RedisMessage, error) {
	ps := c.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan RedisMessage)
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
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
