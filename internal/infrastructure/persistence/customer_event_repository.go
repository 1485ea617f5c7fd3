package persistence

import (
	"context"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerEventRepository implements profile.CustomerEventRepository using GORM
type GormCustomerEventRepository struct {
	db *gorm.DB
}

// NewGormCustomerEventRepository creates a new GormCustomerEventRepository
func NewGormCustomerEventRepository(db *gorm.DB) *GormCustomerEventRepository {
	return &GormCustomerEventRepository{db: db}
}

// Append inserts a timeline entry. The table is append-only; rows are never
// updated or deleted by this subsystem.
func (r *GormCustomerEventRepository) Append(ctx context.Context, event *profile.CustomerEvent) error {
	model := models.CustomerEventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	event.Seq = model.Seq
	return nil
}

// FindRecent returns up to limit events ordered by event date descending.
// Arrival sequence breaks ties so reads are stable for equal timestamps.
func (r *GormCustomerEventRepository) FindRecent(ctx context.Context, customerID string, limit int) ([]profile.CustomerEvent, error) {
	var eventModels []models.CustomerEventModel
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("event_date DESC").
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]profile.CustomerEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

// CountByCustomer returns the total number of timeline entries for a customer
func (r *GormCustomerEventRepository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerEventModel{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}
