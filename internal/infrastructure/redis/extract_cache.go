package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw extraction payloads with a short expiration so a rerun
// with the same parameters inside the window skips the remote calls.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	return c.Client.Set(ctx, key, payload, c.TTL).Err()
}
