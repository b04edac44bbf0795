package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "map-registry:preview:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// storedPreview is the wire form; Preview hides Content from JSON.
type storedPreview struct {
	Preview
	Content []byte `json:"content"`
}

func NewRedisCache(
	ctx context.Context,
	addr, password string,
	db int,
	ttl time.Duration,
) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Debug().Str("addr", addr).Msg("Preview cache connected to redis")

	return NewRedisCacheFromClient(client, ttl), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Put(ctx context.Context, p *Preview) error {
	p.ExpiresAt = time.Now().Add(c.ttl)

	payload, err := json.Marshal(storedPreview{Preview: *p, Content: p.Content})
	if err != nil {
		return fmt.Errorf("failed to encode preview %s: %w", p.ID, err)
	}

	if err := c.client.Set(ctx, keyPrefix+p.ID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store preview %s: %w", p.ID, err)
	}

	return nil
}

func (c *RedisCache) Get(ctx context.Context, id string) (*Preview, error) {
	payload, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPreviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preview %s: %w", id, err)
	}

	var stored storedPreview
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode preview %s: %w", id, err)
	}

	p := stored.Preview
	p.Content = stored.Content

	return &p, nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	removed, err := c.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete preview %s: %w", id, err)
	}
	if removed == 0 {
		return ErrPreviewNotFound
	}

	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
