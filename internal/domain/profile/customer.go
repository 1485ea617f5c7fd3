package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the lifecycle status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusVIP      CustomerStatus = "vip"
	CustomerStatusAtRisk   CustomerStatus = "at-risk"
)

// IsValid checks if the customer status is one of the known values
func (s CustomerStatus) IsValid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusInactive, CustomerStatusVIP, CustomerStatusAtRisk:
		return true
	}
	return false
}

// Customer is the aggregated profile built from lifecycle events.
// IDs are producer-facing strings: producers may address customers by their
// own ids ("cust_1"), and auto-created customers get a generated id.
type Customer struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Company       string
	Status        CustomerStatus
	CustomerSince time.Time
	LifetimeValue decimal.Decimal
	Tags          []string
	CustomFields  map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCustomer creates a customer seeded from whatever identity an event
// carries. When id is empty a new one is generated.
func NewCustomer(id, name, email string) *Customer {
	if id == "" {
		id = "cust_" + uuid.NewString()
	}
	now := time.Now()
	return &Customer{
		ID:            id,
		Name:          name,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Status:        CustomerStatusActive,
		CustomerSince: now,
		LifetimeValue: decimal.Zero,
		CustomFields:  map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasTag reports whether the customer carries the given tag
func (c *Customer) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTags appends tags that are not already present
func (c *Customer) AddTags(tags ...string) {
	for _, t := range tags {
		if t != "" && !c.HasTag(t) {
			c.Tags = append(c.Tags, t)
		}
	}
}

// ProfileUpdate is a partial, last-write-wins update of mutable customer
// fields. Nil pointers mean "leave unchanged". LifetimeValue is deliberately
// absent: it changes only through purchase processing.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Status       *CustomerStatus
	Tags         []string
	CustomFields map[string]any
}

// Apply applies the update to the customer and returns the names of the
// fields that changed, for the summarizing timeline entry.
func (u ProfileUpdate) Apply(c *Customer) []string {
	var changed []string
	if u.Name != nil && *u.Name != c.Name {
		c.Name = *u.Name
		changed = append(changed, "name")
	}
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if email != c.Email {
			c.Email = email
			changed = append(changed, "email")
		}
	}
	if u.Phone != nil && *u.Phone != c.Phone {
		c.Phone = *u.Phone
		changed = append(changed, "phone")
	}
	if u.Company != nil && *u.Company != c.Company {
		c.Company = *u.Company
		changed = append(changed, "company")
	}
	if u.Status != nil && u.Status.IsValid() && *u.Status != c.Status {
		c.Status = *u.Status
		changed = append(changed, "status")
	}
	if len(u.Tags) > 0 {
		before := len(c.Tags)
		c.AddTags(u.Tags...)
		if len(c.Tags) != before {
			changed = append(changed, "tags")
		}
	}
	if len(u.CustomFields) > 0 {
		if c.CustomFields == nil {
			c.CustomFields = map[string]any{}
		}
		for k, v := range u.CustomFields {
			c.CustomFields[k] = v
		}
		changed = append(changed, "custom_fields")
	}
	if len(changed) > 0 {
		c.UpdatedAt = time.Now()
	}
	return changed
}

// Validate checks customer invariants
func (c *Customer) Validate() error {
	if c.ID == "" {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer id cannot be empty")
	}
	if !c.Status.IsValid() {
		return shared.NewDomainError("INVALID_CUSTOMER", "Unknown customer status")
	}
	return nil
}
