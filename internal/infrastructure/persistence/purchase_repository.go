package persistence

import (
	"context"
	"errors"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPurchaseRepository implements profile.PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByExternalID finds a purchase by the producer-supplied purchase id
func (r *GormPurchaseRepository) FindByExternalID(ctx context.Context, customerID, externalID string) (*profile.Purchase, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External purchase id cannot be empty")
	}
	var model models.PurchaseModel
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

// Save inserts a new purchase
func (r *GormPurchaseRepository) Save(ctx context.Context, purchase *profile.Purchase) error {
	model := models.PurchaseModelFromDomain(purchase)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update writes the full purchase row
func (r *GormPurchaseRepository) Update(ctx context.Context, purchase *profile.Purchase) error {
	model := models.PurchaseModelFromDomain(purchase)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByCustomer returns all purchases for a customer, newest first
func (r *GormPurchaseRepository) FindByCustomer(ctx context.Context, customerID string) ([]profile.Purchase, error) {
	var purchaseModels []models.PurchaseModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("purchase_date DESC").
		Find(&purchaseModels).Error; err != nil {
		return nil, err
	}

	purchases := make([]profile.Purchase, len(purchaseModels))
	for i, model := range purchaseModels {
		purchases[i] = *model.ToDomain()
	}
	return purchases, nil
}
