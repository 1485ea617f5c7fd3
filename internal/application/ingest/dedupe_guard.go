package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupeGuard wraps an EventProcessor with best-effort message-level
// deduplication. The pipeline stays at-least-once: purchase and work order
// idempotency is enforced by producer external ids inside the processor's
// transaction; the guard only shrinks the redundant-work window for events
// without a natural key. On a dedupe store error the message is processed
// anyway rather than dropped, and a failed outcome clears the mark so the
// broker's redelivery is not mistaken for a duplicate.
type DedupeGuard struct {
	next    EventProcessor
	store   shared.DedupeStore
	cfg     shared.DedupeConfig
	logger  *zap.Logger
	metrics *Metrics
}

// NewDedupeGuard wraps a processor with a dedupe store
func NewDedupeGuard(next EventProcessor, store shared.DedupeStore, cfg shared.DedupeConfig, logger *zap.Logger, metrics *Metrics) *DedupeGuard {
	return &DedupeGuard{
		next:    next,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("dedupe"),
		metrics: metrics,
	}
}

// Process skips messages the store has already seen, delegating otherwise
func (g *DedupeGuard) Process(ctx context.Context, env *profile.EventEnvelope) (Outcome, error) {
	if !g.cfg.Enabled || g.store == nil {
		return g.next.Process(ctx, env)
	}

	key := MessageKey(env)
	fresh, err := g.store.MarkSeen(ctx, key, g.cfg.TTL)
	if err != nil {
		g.logger.Warn("dedupe store unavailable, processing anyway",
			zap.String("message_key", key),
			zap.Error(err),
		)
		return g.next.Process(ctx, env)
	}
	if !fresh {
		if g.metrics != nil {
			g.metrics.Record(OutcomeDuplicate)
		}
		g.logger.Debug("duplicate message skipped",
			zap.String("message_key", key),
			zap.String("event_type", env.EventType),
		)
		return OutcomeDuplicate, nil
	}

	outcome, err := g.next.Process(ctx, env)
	if outcome == OutcomeFailed {
		// Failed is the one retry-eligible outcome: the broker will redeliver
		// this exact message, so the mark must not survive or the retry would
		// be skipped as a duplicate.
		if unmarkErr := g.store.Unmark(ctx, key); unmarkErr != nil {
			g.logger.Warn("could not unmark failed message, redelivery will be skipped until the mark expires",
				zap.String("message_key", key),
				zap.Error(unmarkErr),
			)
		}
	}
	return outcome, err
}

// MessageKey derives a stable dedupe key for one message: the producer's
// event id when supplied, otherwise a digest of the raw payload.
func MessageKey(env *profile.EventEnvelope) string {
	if id, ok := env.Metadata["event_id"].(string); ok && id != "" {
		return id
	}
	sum := sha256.Sum256(env.Raw())
	return hex.EncodeToString(sum[:])
}

var _ EventProcessor = (*DedupeGuard)(nil)
