package contextview

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerContext is the consolidated read-only view of one customer,
// assembled on demand and never persisted.
type CustomerContext struct {
	Customer      CustomerSummary `json:"customer"`
	RecentEvents  []EventSummary  `json:"recent_events"`
	TotalEvents   int64           `json:"total_events"`
	PurchaseStats PurchaseStats   `json:"purchase_stats"`
	WorkOrders    WorkOrderView   `json:"work_orders"`
	Notes         NotesView       `json:"notes"`
	Summary       string          `json:"summary"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// CustomerSummary is the profile portion of the context
type CustomerSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	Company       string          `json:"company,omitempty"`
	Status        string          `json:"status"`
	CustomerSince time.Time       `json:"customer_since"`
	TenureDays    int             `json:"tenure_days"`
	LifetimeValue decimal.Decimal `json:"lifetime_value"`
	Tags          []string        `json:"tags,omitempty"`
	CustomFields  map[string]any  `json:"custom_fields,omitempty"`
}

// EventSummary is one timeline entry in the context view
type EventSummary struct {
	ID            string           `json:"id"`
	EventType     string           `json:"event_type"`
	EventDate     time.Time        `json:"event_date"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status,omitempty"`
	SourceService string           `json:"source_service,omitempty"`
}

// PurchaseStats is recomputed from purchase rows at read time. TotalSpent
// here and the profile's stored lifetime value are derived independently and
// should agree; callers can compare them as a consistency check.
type PurchaseStats struct {
	Count        int             `json:"count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	AverageOrder decimal.Decimal `json:"average_order"`
	LastPurchase *time.Time      `json:"last_purchase,omitempty"`
	TopProducts  []string        `json:"top_products,omitempty"`
}

// WorkOrderSummary is one work order in the context view
type WorkOrderSummary struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"external_id,omitempty"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Cost        decimal.Decimal `json:"cost"`
	OpenedAt    time.Time       `json:"opened_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// WorkOrderView partitions work orders into the slices callers care about
type WorkOrderView struct {
	Open   []WorkOrderSummary `json:"open"`
	Recent []WorkOrderSummary `json:"recent"`
	Total  int                `json:"total"`
}

// NoteSummary is one knowledge note in the context view
type NoteSummary struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category,omitempty"`
	Importance string    `json:"importance"`
	Tags       []string  `json:"tags,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotesView lists all notes with the critical-importance ones surfaced
type NotesView struct {
	All      []NoteSummary `json:"all"`
	Critical []NoteSummary `json:"critical"`
}
