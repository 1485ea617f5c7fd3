package profile

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewCustomer(t *testing.T) {
	t.Run("keeps a producer-supplied id", func(t *testing.T) {
		c := NewCustomer("cust_1", "Alice", "Alice@Example.com")
		assert.Equal(t, "cust_1", c.ID)
		assert.Equal(t, "alice@example.com", c.Email)
		assert.Equal(t, CustomerStatusActive, c.Status)
		assert.True(t, c.LifetimeValue.IsZero())
	})

	t.Run("generates an id when absent", func(t *testing.T) {
		c := NewCustomer("", "Bob", "bob@example.com")
		assert.True(t, strings.HasPrefix(c.ID, "cust_"))
		assert.NotEqual(t, "cust_", c.ID)
	})
}

func TestProfileUpdate_Apply(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("applies only set fields", func(t *testing.T) {
		c := NewCustomer("cust_1", "Old", "old@example.com")
		c.Phone = "555-0001"

		changed := ProfileUpdate{Name: str("New")}.Apply(c)

		assert.Equal(t, []string{"name"}, changed)
		assert.Equal(t, "New", c.Name)
		assert.Equal(t, "555-0001", c.Phone)
		assert.Equal(t, "old@example.com", c.Email)
	})

	t.Run("no-op update reports no changes", func(t *testing.T) {
		c := NewCustomer("cust_1", "Alice", "alice@example.com")

		changed := ProfileUpdate{Name: str("Alice"), Email: str("ALICE@example.com")}.Apply(c)

		assert.Empty(t, changed)
	})

	t.Run("ignores invalid status", func(t *testing.T) {
		c := NewCustomer("cust_1", "Alice", "alice@example.com")
		bogus := CustomerStatus("platinum")

		changed := ProfileUpdate{Status: &bogus}.Apply(c)

		assert.Empty(t, changed)
		assert.Equal(t, CustomerStatusActive, c.Status)
	})

	t.Run("merges tags and custom fields", func(t *testing.T) {
		c := NewCustomer("cust_1", "Alice", "alice@example.com")
		c.Tags = []string{"beta"}
		c.CustomFields = map[string]any{"region": "EU"}

		changed := ProfileUpdate{
			Tags:         []string{"beta", "vip"},
			CustomFields: map[string]any{"tier": "gold"},
		}.Apply(c)

		assert.ElementsMatch(t, []string{"tags", "custom_fields"}, changed)
		assert.Equal(t, []string{"beta", "vip"}, c.Tags)
		assert.Equal(t, "EU", c.CustomFields["region"])
		assert.Equal(t, "gold", c.CustomFields["tier"])
	})

	t.Run("cannot touch lifetime value", func(t *testing.T) {
		c := NewCustomer("cust_1", "Alice", "alice@example.com")
		c.LifetimeValue = decimal.NewFromInt(500)

		ProfileUpdate{Name: str("Alice B")}.Apply(c)

		assert.True(t, c.LifetimeValue.Equal(decimal.NewFromInt(500)))
	})
}

func TestCustomer_Validate(t *testing.T) {
	c := NewCustomer("cust_1", "Alice", "alice@example.com")
	assert.NoError(t, c.Validate())

	c.ID = ""
	assert.Error(t, c.Validate())

	c = NewCustomer("cust_1", "Alice", "alice@example.com")
	c.Status = "bogus"
	assert.Error(t, c.Validate())
}
