package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("decodes a valid envelope", func(t *testing.T) {
		payload := []byte(`{
			"customer_id": "cust_1",
			"event_type": "purchase",
			"timestamp": 1700000000,
			"source_service": "shop",
			"data": {"total": 49.99, "product": "Stand"}
		}`)

		env, err := DecodeEnvelope(payload)
		require.NoError(t, err)
		assert.Equal(t, "cust_1", env.CustomerID)
		assert.Equal(t, EventTypePurchase, env.Canonical())
		assert.Equal(t, int64(1700000000), env.EventDate().Unix())
		assert.Equal(t, payload, env.Raw())
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"event_type":`))
		assert.Error(t, err)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		for name, payload := range map[string]string{
			"no event_type":     `{"timestamp": 1700000000, "source_service": "shop"}`,
			"no timestamp":      `{"event_type": "purchase", "source_service": "shop"}`,
			"zero timestamp":    `{"event_type": "purchase", "timestamp": 0, "source_service": "shop"}`,
			"no source_service": `{"event_type": "purchase", "timestamp": 1700000000}`,
		} {
			t.Run(name, func(t *testing.T) {
				_, err := DecodeEnvelope([]byte(payload))
				assert.Error(t, err)
			})
		}
	})
}

func TestEventEnvelope_EmailHint(t *testing.T) {
	tests := []struct {
		name string
		env  EventEnvelope
		want string
	}{
		{
			name: "from data, lowercased",
			env:  EventEnvelope{Data: map[string]any{"email": " Alice@Example.COM "}},
			want: "alice@example.com",
		},
		{
			name: "from metadata when data has none",
			env:  EventEnvelope{Metadata: map[string]any{"email": "bob@example.com"}},
			want: "bob@example.com",
		},
		{
			name: "ignores non-email strings",
			env:  EventEnvelope{Data: map[string]any{"email": "not-an-address"}},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.env.EmailHint())
		})
	}
}

func TestEventEnvelope_HasIdentity(t *testing.T) {
	assert.True(t, (&EventEnvelope{CustomerID: "cust_1"}).HasIdentity())
	assert.True(t, (&EventEnvelope{Data: map[string]any{"email": "a@b.com"}}).HasIdentity())
	assert.False(t, (&EventEnvelope{Data: map[string]any{"name": "Alice"}}).HasIdentity())
}

func TestEventEnvelope_Decimal(t *testing.T) {
	env := &EventEnvelope{Data: map[string]any{
		"float":  42.5,
		"string": "19.99",
		"junk":   "not a number",
	}}

	d, ok := env.Decimal("float")
	assert.True(t, ok)
	assert.Equal(t, "42.5", d.String())

	d, ok = env.Decimal("string")
	assert.True(t, ok)
	assert.Equal(t, "19.99", d.String())

	_, ok = env.Decimal("junk")
	assert.False(t, ok)

	_, ok = env.Decimal("absent")
	assert.False(t, ok)
}

func TestParseEventType(t *testing.T) {
	tests := map[string]EventType{
		"purchase":       EventTypePurchase,
		"order":          EventTypePurchase,
		"sale":           EventTypePurchase,
		"support_ticket": EventTypeSupportTicket,
		"ticket":         EventTypeSupportTicket,
		"work_order":     EventTypeWorkOrder,
		"repair":         EventTypeWorkOrder,
		"observation":    EventTypeNote,
		"memory":         EventTypeNote,
		"note":           EventTypeNote,
		"call":           EventTypeContact,
		"meeting":        EventTypeContact,
		"profile_update": EventTypeProfileUpdate,
		"PURCHASE":       EventTypePurchase,
		"whatever":       EventTypeUnknown,
		"":               EventTypeUnknown,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseEventType(input), "input %q", input)
	}
}
