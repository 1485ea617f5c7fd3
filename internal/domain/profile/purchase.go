package profile

import (
	"time"

	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Purchase is one purchase row derived from a purchase event.
// ExternalID is the producer-supplied purchase id; when present it keys the
// idempotent upsert so broker redelivery cannot create a second row.
type Purchase struct {
	shared.BaseEntity
	CustomerID      string
	ExternalID      string
	ProductName     string
	ProductSKU      string
	Quantity        int
	Price           decimal.Decimal
	Total           decimal.Decimal
	PurchaseDate    time.Time
	WarrantyExpires *time.Time
}

// NewPurchase creates a purchase for the given customer
func NewPurchase(customerID, externalID string) *Purchase {
	return &Purchase{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		ExternalID: externalID,
		Quantity:   1,
		Price:      decimal.Zero,
		Total:      decimal.Zero,
	}
}
