package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/persistence"
	"github.com/profilehub/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestProcessor(t *testing.T) (*Processor, profile.RepositorySet) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	uow := persistence.NewGormUnitOfWork(db)
	processor := NewProcessor(uow, Config{
		AutoCreateCustomers: true,
		NoteLengthThreshold: 100,
		NoteSummaryLength:   80,
	}, zap.NewNop(), &Metrics{})

	return processor, persistence.NewRepositorySet(db)
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func envelope(t *testing.T, fields map[string]any) *profile.EventEnvelope {
	t.Helper()

	if _, ok := fields["event_type"]; !ok {
		fields["event_type"] = "purchase"
	}
	if _, ok := fields["timestamp"]; !ok {
		fields["timestamp"] = time.Now().Unix()
	}
	if _, ok := fields["source_service"]; !ok {
		fields["source_service"] = "test-producer"
	}
	payload, err := json.Marshal(fields)
	require.NoError(t, err)

	env, err := profile.DecodeEnvelope(payload)
	require.NoError(t, err)
	return env
}

func TestProcessor_RejectsEventWithoutIdentity(t *testing.T) {
	processor, _ := newTestProcessor(t)

	env := envelope(t, map[string]any{
		"event_type": "purchase",
		"data":       map[string]any{"total": 10.0},
	})

	outcome, err := processor.Process(context.Background(), env)

	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, shared.ErrUnresolvedIdentity)
	assert.Equal(t, int64(1), processor.Metrics().Snapshot().Rejected)
}

func TestProcessor_PurchaseAutoCreatesCustomer(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "purchase",
		"data": map[string]any{
			"purchase_id": "P-100",
			"product":     "Laptop Pro",
			"total":       1299.99,
			"email":       "alice@example.com",
			"name":        "Alice",
		},
	})

	outcome, err := processor.Process(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	customer, err := repos.Customers.FindByID(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", customer.Name)
	assert.Equal(t, "alice@example.com", customer.Email)
	assert.True(t, customer.LifetimeValue.Equal(decimalFromString(t, "1299.99")))

	purchase, err := repos.Purchases.FindByExternalID(ctx, "cust_1", "P-100")
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", purchase.ProductName)

	events, err := repos.Events.FindRecent(ctx, "cust_1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "purchase", events[0].EventType)
	require.NotNil(t, events[0].Amount)
	assert.True(t, events[0].Amount.Equal(decimalFromString(t, "1299.99")))
}

func TestProcessor_PurchaseReplayDoesNotDoubleCount(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	fields := map[string]any{
		"customer_id": "cust_1",
		"event_type":  "purchase",
		"data": map[string]any{
			"purchase_id": "P-200",
			"product":     "Monitor",
			"total":       300.0,
		},
	}

	outcome, err := processor.Process(ctx, envelope(t, fields))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	// Redelivery of the same purchase id
	outcome, err = processor.Process(ctx, envelope(t, fields))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	purchases, err := repos.Purchases.FindByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	customer, err := repos.Customers.FindByID(ctx, "cust_1")
	require.NoError(t, err)
	assert.True(t, customer.LifetimeValue.Equal(decimalFromString(t, "300")),
		"lifetime value should count the purchase once, got %s", customer.LifetimeValue)

	count, err := repos.Events.CountByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "replay should not append a second timeline entry")
}

func TestProcessor_PurchaseTotalFromPriceAndQuantity(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "purchase",
		"data": map[string]any{
			"purchase_id": "P-300",
			"price":       25.5,
			"quantity":    4.0,
		},
	})

	_, err := processor.Process(ctx, env)
	require.NoError(t, err)

	purchase, err := repos.Purchases.FindByExternalID(ctx, "cust_1", "P-300")
	require.NoError(t, err)
	assert.True(t, purchase.Total.Equal(decimalFromString(t, "102")))
	assert.Equal(t, 4, purchase.Quantity)
}

func TestProcessor_ResolvesByEmailWhenIDAbsent(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	existing := profile.NewCustomer("cust_9", "Bob", "bob@example.com")
	require.NoError(t, repos.Customers.Save(ctx, existing))

	env := envelope(t, map[string]any{
		"event_type": "contact",
		"data": map[string]any{
			"email":   "Bob@Example.com",
			"summary": "Quarterly check-in call",
		},
	})

	outcome, err := processor.Process(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	events, err := repos.Events.FindRecent(ctx, "cust_9", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cust_9", events[0].CustomerID)
}

func TestProcessor_WorkOrderUpsert(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	open := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "work_order",
		"data": map[string]any{
			"work_order_id": "WO-1",
			"type":          "screen repair",
			"description":   "Cracked display",
			"status":        "open",
		},
	})
	_, err := processor.Process(ctx, open)
	require.NoError(t, err)

	completed := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "work_order",
		"data": map[string]any{
			"work_order_id": "WO-1",
			"status":        "completed",
			"resolution":    "Display replaced under warranty",
			"cost":          120.0,
		},
	})
	_, err = processor.Process(ctx, completed)
	require.NoError(t, err)

	orders, err := repos.WorkOrders.FindByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	require.Len(t, orders, 1, "same work order id should update, not insert")

	order := orders[0]
	assert.Equal(t, profile.WorkOrderStatusCompleted, order.Status)
	assert.Equal(t, "Display replaced under warranty", order.Resolution)
	assert.Equal(t, "screen repair", order.Type, "fields absent from the update stay put")
	assert.NotNil(t, order.CompletedAt)

	count, err := repos.Events.CountByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "every work order event gets a timeline entry")
}

func TestProcessor_ProfileUpdate(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	existing := profile.NewCustomer("cust_1", "Old Name", "old@example.com")
	require.NoError(t, repos.Customers.Save(ctx, existing))

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "profile_update",
		"data": map[string]any{
			"name":           "New Name",
			"status":         "vip",
			"lifetime_value": 99999.0,
			"tier":           "gold",
		},
	})

	outcome, err := processor.Process(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	customer, err := repos.Customers.FindByID(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", customer.Name)
	assert.Equal(t, profile.CustomerStatusVIP, customer.Status)
	assert.True(t, customer.LifetimeValue.IsZero(),
		"profile updates must not touch the lifetime value accumulator")
	assert.Equal(t, "gold", customer.CustomFields["tier"])

	count, err := repos.Events.CountByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "one summarizing timeline entry per update event")
}

func TestProcessor_NoteEventAlwaysCreatesNote(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "observation",
		"data": map[string]any{
			"content":    "Prefers email over phone",
			"importance": "high",
		},
	})

	_, err := processor.Process(ctx, env)
	require.NoError(t, err)

	notes, err := repos.Notes.FindByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Prefers email over phone", notes[0].Content)
	assert.Equal(t, profile.NoteImportanceHigh, notes[0].Importance)
}

func TestProcessor_SupportTicketNoteDerivation(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	short := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "support_ticket",
		"data":        map[string]any{"description": "Password reset"},
	})
	_, err := processor.Process(ctx, short)
	require.NoError(t, err)

	notes, err := repos.Notes.FindByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Empty(t, notes, "short unflagged tickets stay off the knowledge base")

	long := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "support_ticket",
		"data": map[string]any{
			"description": strings.Repeat("Device overheats under sustained load. ", 5),
		},
	})
	_, err = processor.Process(ctx, long)
	require.NoError(t, err)

	notes, err = repos.Notes.FindByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.LessOrEqual(t, len([]rune(notes[0].Content)), 81,
		"derived note content is summarized")

	count, err := repos.Events.CountByCustomer(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "both tickets land on the timeline")
}

func TestProcessor_UnknownEventTypeFallsBack(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	env := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "subscription_renewal",
		"data":        map[string]any{"description": "Annual plan renewed"},
	})

	outcome, err := processor.Process(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	events, err := repos.Events.FindRecent(ctx, "cust_1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "subscription_renewal", events[0].EventType,
		"timeline keeps the original event type string")
}

func TestProcessor_TimelineOrdersByEventDate(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	now := time.Now().Unix()
	// Delivered out of order: the older event arrives second
	newer := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"timestamp":   now,
		"data":        map[string]any{"summary": "follow-up"},
	})
	older := envelope(t, map[string]any{
		"customer_id": "cust_1",
		"event_type":  "contact",
		"timestamp":   now - 3600,
		"data":        map[string]any{"summary": "first call"},
	})

	_, err := processor.Process(ctx, newer)
	require.NoError(t, err)
	_, err = processor.Process(ctx, older)
	require.NoError(t, err)

	events, err := repos.Events.FindRecent(ctx, "cust_1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "follow-up", events[0].Description)
	assert.Equal(t, "first call", events[1].Description)
}

func TestProcessor_TimelineTieBreaksOnArrivalSequence(t *testing.T) {
	processor, repos := newTestProcessor(t)
	ctx := context.Background()

	// Two events sharing one producer timestamp: arrival sequence decides,
	// latest arrival first, and the order is stable across reads.
	ts := time.Now().Unix()
	for _, summary := range []string{"first arrival", "second arrival", "third arrival"} {
		env := envelope(t, map[string]any{
			"customer_id": "cust_1",
			"event_type":  "contact",
			"timestamp":   ts,
			"data":        map[string]any{"summary": summary},
		})
		_, err := processor.Process(ctx, env)
		require.NoError(t, err)
	}

	for i := 0; i < 2; i++ {
		events, err := repos.Events.FindRecent(ctx, "cust_1", 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "third arrival", events[0].Description)
		assert.Equal(t, "second arrival", events[1].Description)
		assert.Equal(t, "first arrival", events[2].Description)
		assert.Greater(t, events[0].Seq, events[1].Seq)
		assert.Greater(t, events[1].Seq, events[2].Seq)
	}
}
