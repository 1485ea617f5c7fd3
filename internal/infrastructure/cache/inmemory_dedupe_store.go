package cache

import (
	"context"
	"sync"
	"time"

	"github.com/profilehub/backend/internal/domain/shared"
)

// InMemoryDedupeStore implements shared.DedupeStore with a local map.
// Only suitable for tests and single-instance deployments: separate
// instances do not share state, so cross-instance redeliveries pass through.
type InMemoryDedupeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // message id -> expiry
	done    chan struct{}
	once    sync.Once
}

// NewInMemoryDedupeStore creates a new in-memory dedupe store with a
// background sweeper for expired entries.
func NewInMemoryDedupeStore() *InMemoryDedupeStore {
	s := &InMemoryDedupeStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkSeen marks a message id as seen with a TTL
func (s *InMemoryDedupeStore) MarkSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.entries[messageID]; ok && expiry.After(now) {
		return false, nil
	}
	s.entries[messageID] = now.Add(ttl)
	return true, nil
}

// Seen checks whether a message id has already been marked
func (s *InMemoryDedupeStore) Seen(ctx context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[messageID]
	return ok && expiry.After(time.Now()), nil
}

// Unmark clears a marked message id
func (s *InMemoryDedupeStore) Unmark(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, messageID)
	return nil
}

// Close stops the background sweeper
func (s *InMemoryDedupeStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *InMemoryDedupeStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, expiry := range s.entries {
				if expiry.Before(now) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Ensure InMemoryDedupeStore implements DedupeStore
var _ shared.DedupeStore = (*InMemoryDedupeStore)(nil)
