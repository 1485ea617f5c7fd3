package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the closed set of event kinds the processor dispatches on.
// Producers send free-form strings; ParseEventType canonicalizes them so the
// dispatch switch stays exhaustive and unknown kinds route to the fallback.
type EventType string

const (
	EventTypePurchase      EventType = "purchase"
	EventTypeSupportTicket EventType = "support_ticket"
	EventTypeWorkOrder     EventType = "work_order"
	EventTypeContact       EventType = "contact"
	EventTypeProfileUpdate EventType = "profile_update"
	EventTypeNote          EventType = "note"
	EventTypeUnknown       EventType = "unknown"
)

// ParseEventType maps a producer-supplied type string to the canonical set.
// Aliases used by existing producers are folded in ("repair" is a work
// order, "observation" is a note). Anything else is EventTypeUnknown.
func ParseEventType(s string) EventType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "purchase", "order", "sale":
		return EventTypePurchase
	case "support_ticket", "ticket", "support":
		return EventTypeSupportTicket
	case "repair", "work_order":
		return EventTypeWorkOrder
	case "contact", "call", "meeting":
		return EventTypeContact
	case "profile_update":
		return EventTypeProfileUpdate
	case "note", "observation", "memory":
		return EventTypeNote
	default:
		return EventTypeUnknown
	}
}

// CustomerEvent is one append-only timeline entry. Seq is the arrival
// sequence assigned by the store; reads order by EventDate with Seq as a
// stable tie-break, since arrival order carries no meaning.
type CustomerEvent struct {
	Seq           int64
	ID            uuid.UUID
	CustomerID    string
	EventType     string
	EventDate     time.Time
	Title         string
	Description   string
	Amount        *decimal.Decimal
	Status        string
	Metadata      map[string]any
	SourceService string
	RawPayload    []byte
	CreatedAt     time.Time
}

// NewCustomerEvent creates a timeline entry for the given customer
func NewCustomerEvent(customerID string, env *EventEnvelope, title, description string) *CustomerEvent {
	return &CustomerEvent{
		ID:            uuid.New(),
		CustomerID:    customerID,
		EventType:     env.EventType,
		EventDate:     env.EventDate(),
		Title:         title,
		Description:   description,
		Metadata:      env.Metadata,
		SourceService: env.SourceService,
		RawPayload:    env.Raw(),
		CreatedAt:     time.Now(),
	}
}
