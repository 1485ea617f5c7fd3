package persistence

import (
	"context"
	"errors"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkOrderRepository implements profile.WorkOrderRepository using GORM
type GormWorkOrderRepository struct {
	db *gorm.DB
}

// NewGormWorkOrderRepository creates a new GormWorkOrderRepository
func NewGormWorkOrderRepository(db *gorm.DB) *GormWorkOrderRepository {
	return &GormWorkOrderRepository{db: db}
}

// FindByExternalID finds a work order by the producer-supplied id
func (r *GormWorkOrderRepository) FindByExternalID(ctx context.Context, customerID, externalID string) (*profile.WorkOrder, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External work order id cannot be empty")
	}
	var model models.WorkOrderModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND external_id = ?", customerID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts a new work order
func (r *GormWorkOrderRepository) Save(ctx context.Context, order *profile.WorkOrder) error {
	model := models.WorkOrderModelFromDomain(order)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update writes the full work order row
func (r *GormWorkOrderRepository) Update(ctx context.Context, order *profile.WorkOrder) error {
	model := models.WorkOrderModelFromDomain(order)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByCustomer returns all work orders for a customer, newest first
func (r *GormWorkOrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]profile.WorkOrder, error) {
	var orderModels []models.WorkOrderModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("opened_at DESC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]profile.WorkOrder, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}
