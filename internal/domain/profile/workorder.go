package profile

import (
	"time"

	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WorkOrderStatus represents the state of a work order
type WorkOrderStatus string

const (
	WorkOrderStatusOpen       WorkOrderStatus = "open"
	WorkOrderStatusInProgress WorkOrderStatus = "in-progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "completed"
)

// IsValid checks if the work order status is one of the known values
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case WorkOrderStatusOpen, WorkOrderStatusInProgress, WorkOrderStatusCompleted:
		return true
	}
	return false
}

// WorkOrder is a repair or service job tracked for a customer, upserted by
// the producer-supplied work order id (create-or-update).
type WorkOrder struct {
	shared.BaseEntity
	CustomerID  string
	ExternalID  string
	Type        string
	Description string
	Status      WorkOrderStatus
	Priority    string
	AssignedTo  string
	Resolution  string
	Cost        decimal.Decimal
	OpenedAt    time.Time
	CompletedAt *time.Time
}

// NewWorkOrder creates an open work order for the given customer
func NewWorkOrder(customerID, externalID string) *WorkOrder {
	return &WorkOrder{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		ExternalID: externalID,
		Status:     WorkOrderStatusOpen,
		Cost:       decimal.Zero,
		OpenedAt:   time.Now(),
	}
}

// ApplyStatus transitions the work order status, stamping completion time
func (w *WorkOrder) ApplyStatus(status WorkOrderStatus) {
	if !status.IsValid() {
		return
	}
	w.Status = status
	if status == WorkOrderStatusCompleted && w.CompletedAt == nil {
		now := time.Now()
		w.CompletedAt = &now
	}
	w.Touch()
}

// IsOpen reports whether the work order is still unresolved
func (w *WorkOrder) IsOpen() bool {
	return w.Status != WorkOrderStatusCompleted
}
