package profile

import (
	"context"

	"github.com/shopspring/decimal"
)

// CustomerRepository persists aggregated customer profiles
type CustomerRepository interface {
	FindByID(ctx context.Context, id string) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
	Update(ctx context.Context, customer *Customer) error

	// IncrementLifetimeValue adds amount to the stored accumulator as a
	// commutative in-database increment, never an overwrite, so concurrent
	// instances cannot lose updates.
	IncrementLifetimeValue(ctx context.Context, id string, amount decimal.Decimal) error
}

// CustomerEventRepository persists the append-only timeline
type CustomerEventRepository interface {
	Append(ctx context.Context, event *CustomerEvent) error

	// FindRecent returns up to limit events ordered by event date descending,
	// with arrival sequence as a stable tie-break for equal timestamps.
	FindRecent(ctx context.Context, customerID string, limit int) ([]CustomerEvent, error)
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
}

// PurchaseRepository persists purchase rows
type PurchaseRepository interface {
	FindByExternalID(ctx context.Context, customerID, externalID string) (*Purchase, error)
	Save(ctx context.Context, purchase *Purchase) error
	Update(ctx context.Context, purchase *Purchase) error
	FindByCustomer(ctx context.Context, customerID string) ([]Purchase, error)
}

// WorkOrderRepository persists work orders
type WorkOrderRepository interface {
	FindByExternalID(ctx context.Context, customerID, externalID string) (*WorkOrder, error)
	Save(ctx context.Context, order *WorkOrder) error
	Update(ctx context.Context, order *WorkOrder) error
	FindByCustomer(ctx context.Context, customerID string) ([]WorkOrder, error)
}

// KnowledgeNoteRepository persists knowledge notes
type KnowledgeNoteRepository interface {
	Save(ctx context.Context, note *KnowledgeNote) error
	FindByCustomer(ctx context.Context, customerID string) ([]KnowledgeNote, error)
}

// RepositorySet bundles the repositories that participate in one event's
// transaction.
type RepositorySet struct {
	Customers  CustomerRepository
	Events     CustomerEventRepository
	Purchases  PurchaseRepository
	WorkOrders WorkOrderRepository
	Notes      KnowledgeNoteRepository
}

// UnitOfWork runs fn against a transaction-scoped RepositorySet. All writes
// made through the set commit or roll back together, so a mid-processing
// failure cannot leave a purchase without its timeline entry.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos RepositorySet) error) error
}
