package persistence

import (
	"context"

	"github.com/profilehub/backend/internal/domain/profile"
	"gorm.io/gorm"
)

// NewRepositorySet builds the full repository set over one DB handle.
// The handle may be the root connection (for reads) or a transaction.
func NewRepositorySet(db *gorm.DB) profile.RepositorySet {
	return profile.RepositorySet{
		Customers:  NewGormCustomerRepository(db),
		Events:     NewGormCustomerEventRepository(db),
		Purchases:  NewGormPurchaseRepository(db),
		WorkOrders: NewGormWorkOrderRepository(db),
		Notes:      NewGormKnowledgeNoteRepository(db),
	}
}

// GormUnitOfWork implements profile.UnitOfWork over a GORM connection.
// Each Execute call runs fn inside one database transaction; row-level
// locking during that transaction is the only coordination between
// concurrently running consumer instances.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn against transaction-scoped repositories
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos profile.RepositorySet) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositorySet(tx))
	})
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ profile.UnitOfWork = (*GormUnitOfWork)(nil)
