package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds processor behavior settings
type Config struct {
	// AutoCreateCustomers enables creating a customer on first event
	AutoCreateCustomers bool

	// NoteLengthThreshold is the description length beyond which a
	// knowledge note is derived even without an importance flag
	NoteLengthThreshold int

	// NoteSummaryLength caps the stored note content; the full text stays
	// in the event's raw payload
	NoteSummaryLength int
}

// Processor validates envelopes, resolves identity, and dispatches events to
// type handlers. All writes for one event run inside a single unit of work.
// One Processor owns one store handle and is safe for sequential use by one
// subscriber; scale-out comes from running more instances.
type Processor struct {
	uow      profile.UnitOfWork
	resolver *IdentityResolver
	cfg      Config
	logger   *zap.Logger
	metrics  *Metrics
}

// NewProcessor creates a new event processor
func NewProcessor(uow profile.UnitOfWork, cfg Config, logger *zap.Logger, metrics *Metrics) *Processor {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Processor{
		uow:      uow,
		resolver: NewIdentityResolver(cfg.AutoCreateCustomers, logger),
		cfg:      cfg,
		logger:   logger.Named("processor"),
		metrics:  metrics,
	}
}

// Metrics returns the processor's pipeline metrics
func (p *Processor) Metrics() *Metrics {
	return p.metrics
}

// Process handles one decoded envelope. Rejection happens before any write;
// everything else commits or rolls back atomically. A returned
// OutcomeFailed relies on broker redelivery for retry.
func (p *Processor) Process(ctx context.Context, env *profile.EventEnvelope) (Outcome, error) {
	if !env.HasIdentity() {
		p.metrics.Record(OutcomeRejected)
		p.logger.Warn("event rejected: no customer id or email hint",
			zap.String("event_type", env.EventType),
			zap.String("source_service", env.SourceService),
		)
		return OutcomeRejected, shared.ErrUnresolvedIdentity
	}

	err := p.uow.Execute(ctx, func(repos profile.RepositorySet) error {
		customer, created, err := p.resolver.Resolve(ctx, repos.Customers, SeedFromEnvelope(env))
		if err != nil {
			return err
		}
		if created {
			p.logger.Debug("processing event for new customer",
				zap.String("customer_id", customer.ID))
		}
		return p.dispatch(ctx, repos, customer, env)
	})

	switch {
	case err == nil:
		p.metrics.Record(OutcomeProcessed)
		return OutcomeProcessed, nil
	case errors.Is(err, shared.ErrUnresolvedIdentity):
		p.metrics.Record(OutcomeRejected)
		p.logger.Warn("event rejected: identity unresolved",
			zap.String("event_type", env.EventType),
			zap.String("customer_id", env.CustomerID),
		)
		return OutcomeRejected, err
	default:
		p.metrics.Record(OutcomeFailed)
		p.logger.Error("event processing failed",
			zap.String("event_type", env.EventType),
			zap.String("customer_id", env.CustomerID),
			zap.Error(err),
		)
		return OutcomeFailed, err
	}
}

// dispatch routes the event through the closed type set. Unknown types fall
// through to the fallback handler so nothing is silently discarded.
func (p *Processor) dispatch(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	switch env.Canonical() {
	case profile.EventTypePurchase:
		return p.handlePurchase(ctx, repos, customer, env)
	case profile.EventTypeSupportTicket:
		return p.handleSupportTicket(ctx, repos, customer, env)
	case profile.EventTypeWorkOrder:
		return p.handleWorkOrder(ctx, repos, customer, env)
	case profile.EventTypeProfileUpdate:
		return p.handleProfileUpdate(ctx, repos, customer, env)
	case profile.EventTypeNote:
		return p.handleNote(ctx, repos, customer, env)
	case profile.EventTypeContact:
		return p.handleContact(ctx, repos, customer, env)
	case profile.EventTypeUnknown:
		return p.handleFallback(ctx, repos, customer, env)
	default:
		return p.handleFallback(ctx, repos, customer, env)
	}
}

// handlePurchase upserts a purchase keyed by the producer purchase id and
// increments the lifetime value accumulator. A redelivered event with a
// known external id updates the row but neither increments again nor
// appends a second timeline entry.
func (p *Processor) handlePurchase(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	externalID := env.FirstString("purchase_id", "order_id")

	total, ok := env.Decimal("total")
	if !ok {
		total, _ = env.Decimal("amount")
	}
	price, _ := env.Decimal("price")
	quantity := env.Int("quantity", 1)
	if total.IsZero() && !price.IsZero() {
		total = price.Mul(decimal.NewFromInt(int64(quantity)))
	}

	if externalID != "" {
		existing, err := repos.Purchases.FindByExternalID(ctx, customer.ID, externalID)
		if err == nil {
			p.applyPurchaseFields(existing, env, price, quantity, total)
			existing.Touch()
			p.logger.Debug("duplicate purchase id, updating row without re-counting",
				zap.String("customer_id", customer.ID),
				zap.String("purchase_id", externalID),
			)
			return repos.Purchases.Update(ctx, existing)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
	}

	purchase := profile.NewPurchase(customer.ID, externalID)
	purchase.PurchaseDate = env.EventDate()
	p.applyPurchaseFields(purchase, env, price, quantity, total)
	if err := repos.Purchases.Save(ctx, purchase); err != nil {
		return err
	}

	event := profile.NewCustomerEvent(customer.ID, env,
		titleOr(env, "Purchase: "+nameOr(purchase.ProductName, externalID)),
		env.String("description"))
	event.Amount = &total
	event.Status = "completed"
	if err := repos.Events.Append(ctx, event); err != nil {
		return err
	}

	return repos.Customers.IncrementLifetimeValue(ctx, customer.ID, total)
}

func (p *Processor) applyPurchaseFields(purchase *profile.Purchase, env *profile.EventEnvelope, price decimal.Decimal, quantity int, total decimal.Decimal) {
	if name := env.FirstString("product", "product_name", "item"); name != "" {
		purchase.ProductName = name
	}
	if sku := env.String("sku"); sku != "" {
		purchase.ProductSKU = sku
	}
	purchase.Quantity = quantity
	purchase.Price = price
	purchase.Total = total
	if months := env.Int("warranty_months", 0); months > 0 {
		expires := purchase.PurchaseDate.AddDate(0, months, 0)
		purchase.WarrantyExpires = &expires
	}
}

// handleSupportTicket appends a timeline entry and derives a knowledge note
// when the payload is flagged important or the description runs long.
func (p *Processor) handleSupportTicket(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	description := env.FirstString("description", "issue", "content")
	event := profile.NewCustomerEvent(customer.ID, env,
		titleOr(env, "Support ticket"), description)
	event.Status = statusOr(env, "open")
	if err := repos.Events.Append(ctx, event); err != nil {
		return err
	}

	if p.shouldDeriveNote(env, description) {
		return p.createNote(ctx, repos, customer, env, description, "support")
	}
	return nil
}

// handleNote appends a timeline entry and always records a knowledge note
func (p *Processor) handleNote(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	content := env.FirstString("content", "note", "description", "text")
	event := profile.NewCustomerEvent(customer.ID, env, titleOr(env, "Note"), content)
	if err := repos.Events.Append(ctx, event); err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	return p.createNote(ctx, repos, customer, env, content, "note")
}

// handleWorkOrder upserts a work order keyed by the producer work order id
// (create when absent, update status/resolution/cost when present) and
// appends a timeline entry.
func (p *Processor) handleWorkOrder(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	externalID := env.FirstString("work_order_id", "repair_id")
	description := env.FirstString("description", "issue")

	var order *profile.WorkOrder
	action := "opened"
	if externalID != "" {
		existing, err := repos.WorkOrders.FindByExternalID(ctx, customer.ID, externalID)
		switch {
		case err == nil:
			order = existing
			action = "updated"
		case errors.Is(err, shared.ErrNotFound):
			// fall through to create
		default:
			return err
		}
	}

	if order == nil {
		order = profile.NewWorkOrder(customer.ID, externalID)
		order.OpenedAt = env.EventDate()
	}

	if t := env.FirstString("type", "repair_type"); t != "" {
		order.Type = t
	}
	if description != "" {
		order.Description = description
	}
	if s := env.String("status"); s != "" {
		order.ApplyStatus(profile.WorkOrderStatus(s))
	}
	if pr := env.String("priority"); pr != "" {
		order.Priority = pr
	}
	if a := env.FirstString("assigned_to", "technician"); a != "" {
		order.AssignedTo = a
	}
	if res := env.String("resolution"); res != "" {
		order.Resolution = res
	}
	if cost, ok := env.Decimal("cost"); ok {
		order.Cost = cost
	}

	var err error
	if action == "updated" {
		order.Touch()
		err = repos.WorkOrders.Update(ctx, order)
	} else {
		err = repos.WorkOrders.Save(ctx, order)
	}
	if err != nil {
		return err
	}

	event := profile.NewCustomerEvent(customer.ID, env,
		titleOr(env, fmt.Sprintf("Work order %s %s", nameOr(externalID, order.Type), action)),
		description)
	event.Status = string(order.Status)
	return repos.Events.Append(ctx, event)
}

// handleProfileUpdate applies a partial last-write-wins update and appends
// one summarizing timeline entry, not one per field.
func (p *Processor) handleProfileUpdate(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	update := profileUpdateFromEnvelope(env)
	changed := update.Apply(customer)

	if len(changed) > 0 {
		if err := repos.Customers.Update(ctx, customer); err != nil {
			return err
		}
	}

	title := "Profile updated"
	if len(changed) > 0 {
		title = "Profile updated (" + strings.Join(changed, ", ") + ")"
	}
	event := profile.NewCustomerEvent(customer.ID, env, title, "")
	return repos.Events.Append(ctx, event)
}

// handleContact appends a timeline entry only
func (p *Processor) handleContact(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	event := profile.NewCustomerEvent(customer.ID, env,
		titleOr(env, "Contact"), env.FirstString("description", "summary", "notes"))
	event.Status = env.String("status")
	return repos.Events.Append(ctx, event)
}

// handleFallback records unknown event types on the timeline so nothing is
// silently discarded.
func (p *Processor) handleFallback(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope) error {
	p.logger.Debug("unknown event type routed to fallback handler",
		zap.String("event_type", env.EventType),
		zap.String("customer_id", customer.ID),
	)
	event := profile.NewCustomerEvent(customer.ID, env,
		titleOr(env, env.EventType+" event"), env.String("description"))
	event.Status = env.String("status")
	return repos.Events.Append(ctx, event)
}

// shouldDeriveNote decides whether a non-note event's payload is worth
// keeping as a knowledge note.
func (p *Processor) shouldDeriveNote(env *profile.EventEnvelope, description string) bool {
	if env.Bool("important") || env.Bool("save_as_memory") || env.Bool("save") {
		return true
	}
	return len([]rune(description)) > p.cfg.NoteLengthThreshold
}

func (p *Processor) createNote(ctx context.Context, repos profile.RepositorySet, customer *profile.Customer, env *profile.EventEnvelope, content, category string) error {
	note := profile.NewKnowledgeNote(customer.ID, profile.Summarize(content, p.cfg.NoteSummaryLength))
	note.Source = env.SourceService
	if c := env.String("category"); c != "" {
		note.Category = c
	} else {
		note.Category = category
	}
	if imp := profile.NoteImportance(env.String("importance")); imp.IsValid() {
		note.Importance = imp
	} else if env.Bool("important") {
		note.Importance = profile.NoteImportanceHigh
	}
	note.Tags = stringSlice(env.Data["tags"])
	return repos.Notes.Save(ctx, note)
}

// profileUpdateFromEnvelope maps envelope data onto a partial update.
// Unknown keys land in custom fields rather than being dropped.
func profileUpdateFromEnvelope(env *profile.EventEnvelope) profile.ProfileUpdate {
	update := profile.ProfileUpdate{}
	custom := map[string]any{}
	for key, value := range env.Data {
		switch key {
		case "name":
			if s, ok := value.(string); ok {
				update.Name = &s
			}
		case "email":
			if s, ok := value.(string); ok {
				update.Email = &s
			}
		case "phone":
			if s, ok := value.(string); ok {
				update.Phone = &s
			}
		case "company":
			if s, ok := value.(string); ok {
				update.Company = &s
			}
		case "status":
			if s, ok := value.(string); ok {
				status := profile.CustomerStatus(s)
				update.Status = &status
			}
		case "tags":
			update.Tags = stringSlice(value)
		case "custom_fields":
			if m, ok := value.(map[string]any); ok {
				for k, v := range m {
					custom[k] = v
				}
			}
		default:
			custom[key] = value
		}
	}
	if len(custom) > 0 {
		update.CustomFields = custom
	}
	return update
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func titleOr(env *profile.EventEnvelope, fallback string) string {
	if t := env.FirstString("title", "subject"); t != "" {
		return t
	}
	return fallback
}

func statusOr(env *profile.EventEnvelope, fallback string) string {
	if s := env.String("status"); s != "" {
		return s
	}
	return fallback
}

func nameOr(value, fallback string) string {
	if value != "" {
		return value
	}
	if fallback != "" {
		return fallback
	}
	return "item"
}

// Ensure Processor implements EventProcessor
var _ EventProcessor = (*Processor)(nil)
