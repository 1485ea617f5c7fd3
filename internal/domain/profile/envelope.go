package profile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var envelopeValidator = validator.New()

// EventEnvelope is the inbound wire format, one per bus message.
// Data is open and event-type specific; the full original bytes are kept so
// raw_payload can be stored for audit and replay.
type EventEnvelope struct {
	CustomerID    string         `json:"customer_id,omitempty"`
	EventType     string         `json:"event_type" validate:"required"`
	Timestamp     int64          `json:"timestamp" validate:"required,gt=0"`
	SourceService string         `json:"source_service" validate:"required"`
	Data          map[string]any `json:"data"`
	Metadata      map[string]any `json:"metadata,omitempty"`

	raw []byte
}

// DecodeEnvelope decodes and validates an envelope from message bytes
func DecodeEnvelope(payload []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := envelopeValidator.Struct(&env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	env.raw = payload
	return &env, nil
}

// Raw returns the original message bytes the envelope was decoded from.
// For envelopes constructed in code (the synchronous API path) it falls
// back to re-marshaling.
func (e *EventEnvelope) Raw() []byte {
	if e.raw != nil {
		return e.raw
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return raw
}

// EventDate returns the producer-supplied timestamp as a time
func (e *EventEnvelope) EventDate() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}

// EmailHint returns an email-like identity hint from data or metadata
func (e *EventEnvelope) EmailHint() string {
	for _, m := range []map[string]any{e.Data, e.Metadata} {
		if v, ok := m["email"].(string); ok {
			v = strings.TrimSpace(v)
			if strings.Contains(v, "@") {
				return strings.ToLower(v)
			}
		}
	}
	return ""
}

// HasIdentity reports whether the envelope carries any usable identity
func (e *EventEnvelope) HasIdentity() bool {
	return e.CustomerID != "" || e.EmailHint() != ""
}

// Canonical returns the canonical event type for dispatch
func (e *EventEnvelope) Canonical() EventType {
	return ParseEventType(e.EventType)
}

// String returns the string value of a data field, or "" when absent
func (e *EventEnvelope) String(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// FirstString returns the first non-empty string among the given data keys
func (e *EventEnvelope) FirstString(keys ...string) string {
	for _, k := range keys {
		if v := e.String(k); v != "" {
			return v
		}
	}
	return ""
}

// Bool returns the boolean value of a data field, tolerating string forms
func (e *EventEnvelope) Bool(key string) bool {
	switch v := e.Data[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes" || v == "1"
	}
	return false
}

// Decimal returns the decimal value of a numeric data field.
// JSON numbers arrive as float64; producers sometimes send strings.
func (e *EventEnvelope) Decimal(key string) (decimal.Decimal, bool) {
	switch v := e.Data[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// Int returns the integer value of a numeric data field, or def when absent
func (e *EventEnvelope) Int(key string, def int) int {
	if v, ok := e.Data[key].(float64); ok {
		return int(v)
	}
	return def
}
