package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-checkin/internal/queue"
)

// publisher is the slice of *redis.Client the emitter needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisEmitter publishes refresh events on the pub/sub channel
// "{prefix}:{room}".
type RedisEmitter struct {
	client publisher
	prefix string
}

// NewRedisEmitter returns an emitter publishing through client.
func NewRedisEmitter(client *redis.Client, prefix string) *RedisEmitter {
	return &RedisEmitter{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for a room.
func (e *RedisEmitter) Channel(room string) string {
	if e.prefix == "" {
		return room
	}
	return e.prefix + ":" + room
}

func (e *RedisEmitter) Emit(ctx context.Context, ev queue.RefreshEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	if err := e.client.Publish(ctx, e.Channel(ev.Room), body).Err(); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (e *RedisEmitter) Close() error { return nil }
