package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContextCache caches rendered customer context summaries for a short TTL.
// The builder is read-only and safe to call repeatedly; the cache just
// shields the store from bursts of identical reads by downstream callers.
type ContextCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewContextCache creates a new context cache
func NewContextCache(client *redis.Client, ttl time.Duration) *ContextCache {
	return &ContextCache{
		client:    client,
		keyPrefix: "context:customer:",
		ttl:       ttl,
	}
}

// Get returns the cached summary for a customer, or false when absent
func (c *ContextCache) Get(ctx context.Context, customerID string, target any) (bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+customerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("context cache get: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("context cache decode: %w", err)
	}
	return true, nil
}

// Set stores the summary for a customer
func (c *ContextCache) Set(ctx context.Context, customerID string, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("context cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+customerID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("context cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a customer
func (c *ContextCache) Invalidate(ctx context.Context, customerID string) error {
	return c.client.Del(ctx, c.keyPrefix+customerID).Err()
}
