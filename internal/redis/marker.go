package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker records that a one-off action happened so repeated runs skip it.
type Marker interface {
	// MarkOnce reports true only for the first caller of key within ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

type redisMarker struct {
	client *redis.Client
}

func NewRedisMarker(client *redis.Client) Marker {
	return &redisMarker{client: client}
}

func (m *redisMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}

func (m *redisMarker) Unmark(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("unmark %s: %w", key, err)
	}
	return nil
}
