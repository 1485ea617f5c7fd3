package shared

import (
	"context"
	"time"
)

// DedupeStore remembers message ids that have already been handed to the
// processor, so redeliveries from the broker can be skipped cheaply.
// The pipeline stays correct without it; it is a best-effort guard shared
// across consumer instances.
type DedupeStore interface {
	// MarkSeen marks a message id as seen with a TTL.
	// Returns true if the id was newly marked, false if it was already seen.
	MarkSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error)

	// Seen checks whether a message id has already been marked.
	Seen(ctx context.Context, messageID string) (bool, error)

	// Unmark clears a marked message id so a broker redelivery of the same
	// message reaches the processor again.
	Unmark(ctx context.Context, messageID string) error

	// Close closes the store and releases resources
	Close() error
}

// DedupeConfig holds configuration for duplicate-message suppression
type DedupeConfig struct {
	// TTL is the time-to-live for seen message ids.
	// After this duration, the same id is treated as new again.
	TTL time.Duration

	// Enabled determines whether the dedupe guard is consulted at all
	Enabled bool
}

// DefaultDedupeConfig returns the default dedupe configuration
func DefaultDedupeConfig() DedupeConfig {
	return DedupeConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
