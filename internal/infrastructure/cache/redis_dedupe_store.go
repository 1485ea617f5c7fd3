package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisDedupeStore implements shared.DedupeStore using Redis.
// Suitable for distributed deployments where all consumer instances in the
// queue group need to share the seen-message state.
type RedisDedupeStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisDedupeStore creates a dedupe store with an existing Redis client.
// Sharing one client with the context cache keeps the connection count down.
func NewRedisDedupeStore(client *redis.Client, keyPrefix string) *RedisDedupeStore {
	if keyPrefix == "" {
		keyPrefix = "event:dedupe:"
	}
	return &RedisDedupeStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkSeen marks a message id as seen with a TTL.
// SETNX makes the check-and-set atomic across instances.
func (s *RedisDedupeStore) MarkSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + messageID
	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as seen: %w", err)
	}
	return result, nil
}

// Seen checks whether a message id has already been marked
func (s *RedisDedupeStore) Seen(ctx context.Context, messageID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seen message: %w", err)
	}
	return exists > 0, nil
}

// Unmark clears a marked message id
func (s *RedisDedupeStore) Unmark(ctx context.Context, messageID string) error {
	if err := s.client.Del(ctx, s.keyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("failed to unmark message: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is owned by the caller
func (s *RedisDedupeStore) Close() error {
	return nil
}

// Ensure RedisDedupeStore implements DedupeStore
var _ shared.DedupeStore = (*RedisDedupeStore)(nil)
