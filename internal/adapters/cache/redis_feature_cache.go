package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"commuter-sim-service/internal/ports"
)

// Redis-backed cache for geospatial lookups. Entries expire on a TTL
// sized to a few spawn cycles; the engine re-queries the geospatial
// provider when an entry lapses.
type RedisFeatureCache struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisFeatureCache(client *redis.Client, ttl time.Duration) *RedisFeatureCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisFeatureCache{Client: client, TTL: ttl, Prefix: "geo:"}
}

func (c *RedisFeatureCache) GetCount(ctx context.Context, key string) (int, bool, error) {
	if c.Client == nil {
		return 0, false, errors.New("feature cache: client is nil")
	}

	n, err := c.Client.Get(ctx, c.Prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get count cache key=%q: %w", key, err)
	}
	return n, true, nil
}

func (c *RedisFeatureCache) PutCount(ctx context.Context, key string, count int) error {
	if c.Client == nil {
		return errors.New("feature cache: client is nil")
	}

	if err := c.Client.Set(ctx, c.Prefix+key, count, c.TTL).Err(); err != nil {
		return fmt.Errorf("put count cache key=%q: %w", key, err)
	}
	return nil
}

func (c *RedisFeatureCache) GetFeatures(ctx context.Context, key string) ([]ports.Feature, bool, error) {
	if c.Client == nil {
		return nil, false, errors.New("feature cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, c.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get features cache key=%q: %w", key, err)
	}

	var features []ports.Feature
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, false, fmt.Errorf("get features cache key=%q: decode: %w", key, err)
	}
	return features, true, nil
}

func (c *RedisFeatureCache) PutFeatures(ctx context.Context, key string, features []ports.Feature) error {
	if c.Client == nil {
		return errors.New("feature cache: client is nil")
	}

	raw, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("put features cache key=%q: encode: %w", key, err)
	}
	if err := c.Client.Set(ctx, c.Prefix+key, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("put features cache key=%q: %w", key, err)
	}
	return nil
}
