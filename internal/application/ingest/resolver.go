package ingest

import (
	"context"
	"errors"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdentitySeed is the identity material one event carries
type IdentitySeed struct {
	CustomerID string
	Email      string
	Name       string
	Phone      string
	Company    string
}

// SeedFromEnvelope extracts identity material from an envelope
func SeedFromEnvelope(env *profile.EventEnvelope) IdentitySeed {
	return IdentitySeed{
		CustomerID: env.CustomerID,
		Email:      env.EmailHint(),
		Name:       env.FirstString("name", "customer_name"),
		Phone:      env.String("phone"),
		Company:    env.String("company"),
	}
}

// IdentityResolver maps an event to an existing or newly created customer.
// Lookup order: explicit customer id, then case-normalized email. The id is
// authoritative: when both are present and point at different customers the
// id wins and no merge happens.
type IdentityResolver struct {
	autoCreate bool
	logger     *zap.Logger
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(autoCreate bool, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		autoCreate: autoCreate,
		logger:     logger.Named("resolver"),
	}
}

// Resolve returns the customer for a seed, creating one when allowed.
// The returned bool reports whether a customer was created. Runs against
// the caller's transaction-scoped repository so creation commits or rolls
// back with the rest of the event's writes.
func (r *IdentityResolver) Resolve(ctx context.Context, customers profile.CustomerRepository, seed IdentitySeed) (*profile.Customer, bool, error) {
	if seed.CustomerID == "" && seed.Email == "" {
		return nil, false, shared.ErrUnresolvedIdentity
	}

	if seed.CustomerID != "" {
		customer, err := customers.FindByID(ctx, seed.CustomerID)
		if err == nil {
			return customer, false, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, false, err
		}
	}

	if seed.Email != "" {
		customer, err := customers.FindByEmail(ctx, seed.Email)
		if err == nil {
			return customer, false, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, false, err
		}
	}

	if !r.autoCreate {
		return nil, false, shared.ErrUnresolvedIdentity
	}

	customer := profile.NewCustomer(seed.CustomerID, seed.Name, seed.Email)
	customer.Phone = seed.Phone
	customer.Company = seed.Company
	if err := customers.Save(ctx, customer); err != nil {
		return nil, false, err
	}

	r.logger.Info("customer auto-created",
		zap.String("customer_id", customer.ID),
		zap.String("email", customer.Email),
	)
	return customer, true, nil
}
