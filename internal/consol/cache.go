package consol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const runKeyPrefix = "consol:run:"

// ErrCacheMiss indicates the run is not cached.
var ErrCacheMiss = errors.New("consol: cache miss")

// Cache stores run envelopes in Redis with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetRun loads a cached run envelope.
func (c *Cache) GetRun(ctx context.Context, id string) (*ConsolidatedResult, error) {
	if c == nil || c.client == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, runKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("consol cache: get: %w", err)
	}
	var res ConsolidatedResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("consol cache: decode: %w", err)
	}
	return &res, nil
}

// StoreRun caches a run envelope under its run ID.
func (c *Cache) StoreRun(ctx context.Context, res *ConsolidatedResult) error {
	if c == nil || c.client == nil || res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("consol cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, runKeyPrefix+res.RunID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("consol cache: set: %w", err)
	}
	return nil
}
