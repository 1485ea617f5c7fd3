package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingProcessor struct {
	calls   int
	outcome Outcome
}

func (p *countingProcessor) Process(ctx context.Context, env *profile.EventEnvelope) (Outcome, error) {
	p.calls++
	return p.outcome, nil
}

type failingStore struct{}

func (failingStore) MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Seen(ctx context.Context, id string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Unmark(ctx context.Context, id string) error {
	return errors.New("store down")
}
func (failingStore) Close() error { return nil }

// flakyProcessor fails its first delivery and succeeds afterwards
type flakyProcessor struct {
	calls int
}

func (p *flakyProcessor) Process(ctx context.Context, env *profile.EventEnvelope) (Outcome, error) {
	p.calls++
	if p.calls == 1 {
		return OutcomeFailed, errors.New("database unavailable")
	}
	return OutcomeProcessed, nil
}

func TestDedupeGuard_SkipsSecondDelivery(t *testing.T) {
	store := cache.NewInMemoryDedupeStore()
	defer store.Close()

	next := &countingProcessor{outcome: OutcomeProcessed}
	metrics := &Metrics{}
	guard := NewDedupeGuard(next, store, shared.DedupeConfig{Enabled: true, TTL: time.Minute}, zap.NewNop(), metrics)

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"metadata":    map[string]any{"event_id": "evt-123"},
	})

	outcome, err := guard.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = guard.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, int64(1), metrics.Snapshot().Duplicates)
}

func TestDedupeGuard_RedeliveryAfterFailureReachesProcessor(t *testing.T) {
	store := cache.NewInMemoryDedupeStore()
	defer store.Close()

	next := &flakyProcessor{}
	guard := NewDedupeGuard(next, store, shared.DedupeConfig{Enabled: true, TTL: time.Hour}, zap.NewNop(), &Metrics{})

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "purchase",
		"metadata":    map[string]any{"event_id": "evt-789"},
		"data":        map[string]any{"purchase_id": "P-1", "total": 10.0},
	})

	outcome, err := guard.Process(context.Background(), env)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)

	// The broker redelivers the identical message; the failed attempt must
	// not have left a mark behind.
	outcome, err = guard.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 2, next.calls, "redelivery must reach the processor")
}

func TestDedupeGuard_KeyFallsBackToPayloadDigest(t *testing.T) {
	a := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"data":        map[string]any{"summary": "call"},
	})
	b := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"data":        map[string]any{"summary": "different call"},
	})

	assert.NotEqual(t, MessageKey(a), MessageKey(b))
	assert.Equal(t, MessageKey(a), MessageKey(a), "same payload yields a stable key")
}

func TestDedupeGuard_ProcessesOnStoreError(t *testing.T) {
	next := &countingProcessor{outcome: OutcomeProcessed}
	guard := NewDedupeGuard(next, failingStore{}, shared.DedupeConfig{Enabled: true, TTL: time.Minute}, zap.NewNop(), &Metrics{})

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
	})

	outcome, err := guard.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 1, next.calls, "a broken dedupe store must not drop messages")
}

func TestDedupeGuard_DisabledPassesThrough(t *testing.T) {
	store := cache.NewInMemoryDedupeStore()
	defer store.Close()

	next := &countingProcessor{outcome: OutcomeProcessed}
	guard := NewDedupeGuard(next, store, shared.DedupeConfig{Enabled: false, TTL: time.Minute}, zap.NewNop(), &Metrics{})

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"metadata":    map[string]any{"event_id": "evt-456"},
	})

	for i := 0; i < 2; i++ {
		outcome, err := guard.Process(context.Background(), env)
		require.NoError(t, err)
		assert.Equal(t, OutcomeProcessed, outcome)
	}
	assert.Equal(t, 2, next.calls)
}
