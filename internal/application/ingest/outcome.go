package ingest

import (
	"context"

	"github.com/profilehub/backend/internal/domain/profile"
)

// Outcome classifies what processing one event did, and with it whether the
// broker's redelivery is wanted: only OutcomeFailed is retry-eligible.
type Outcome string

const (
	// OutcomeProcessed means the event's writes committed
	OutcomeProcessed Outcome = "processed"

	// OutcomeRejected means the event carried no usable identity.
	// Terminal: redelivery cannot supply the missing data.
	OutcomeRejected Outcome = "rejected"

	// OutcomeFailed means a transient store error rolled the writes back.
	// The broker's at-least-once redelivery is the retry mechanism; the
	// processor keeps no internal retry queue.
	OutcomeFailed Outcome = "failed"

	// OutcomeDuplicate means the dedupe guard had already seen the message
	OutcomeDuplicate Outcome = "duplicate"
)

// EventProcessor turns one decoded envelope into derived-store state
type EventProcessor interface {
	Process(ctx context.Context, env *profile.EventEnvelope) (Outcome, error)
}
