package contextview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options bounds how much of a customer's history the builder loads
type Options struct {
	// EventLimit caps the number of recent timeline entries
	EventLimit int

	// RecentWorkOrders caps the recent work order slice; open orders are
	// always included in full
	RecentWorkOrders int
}

// DefaultOptions returns the builder's default bounds
func DefaultOptions() Options {
	return Options{EventLimit: 20, RecentWorkOrders: 5}
}

// Cache is the optional read-through cache in front of the builder
type Cache interface {
	Get(ctx context.Context, customerID string, target any) (bool, error)
	Set(ctx context.Context, customerID string, summary any) error
}

// KnowledgeSearcher filters a customer's notes by a free-text query.
// Implementations may use an external index; the default is nil (no search).
type KnowledgeSearcher interface {
	Search(ctx context.Context, customerID, query string, limit int) ([]profile.KnowledgeNote, error)
}

// Builder assembles the consolidated customer view from the derived store.
// Strictly read-only: it recomputes purchase statistics from rows rather than
// trusting the stored lifetime value, and writes nothing back.
type Builder struct {
	repos    profile.RepositorySet
	opts     Options
	cache    Cache
	searcher KnowledgeSearcher
	logger   *zap.Logger
}

// NewBuilder creates a context builder over non-transactional repositories
func NewBuilder(repos profile.RepositorySet, opts Options, logger *zap.Logger) *Builder {
	if opts.EventLimit <= 0 {
		opts.EventLimit = DefaultOptions().EventLimit
	}
	if opts.RecentWorkOrders <= 0 {
		opts.RecentWorkOrders = DefaultOptions().RecentWorkOrders
	}
	return &Builder{
		repos:  repos,
		opts:   opts,
		logger: logger.Named("contextview"),
	}
}

// WithCache attaches a read-through cache
func (b *Builder) WithCache(cache Cache) *Builder {
	b.cache = cache
	return b
}

// WithSearcher attaches a knowledge note searcher
func (b *Builder) WithSearcher(searcher KnowledgeSearcher) *Builder {
	b.searcher = searcher
	return b
}

// Build assembles the context for one customer. Returns shared.ErrNotFound
// (wrapped) when the customer does not exist.
func (b *Builder) Build(ctx context.Context, customerID string) (*CustomerContext, error) {
	if b.cache != nil {
		var cached CustomerContext
		hit, err := b.cache.Get(ctx, customerID, &cached)
		if err != nil {
			b.logger.Warn("context cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	customer, err := b.repos.Customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	events, err := b.repos.Events.FindRecent(ctx, customerID, b.opts.EventLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	totalEvents, err := b.repos.Events.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	purchases, err := b.repos.Purchases.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	orders, err := b.repos.WorkOrders.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load work orders: %w", err)
	}
	notes, err := b.repos.Notes.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	view := &CustomerContext{
		Customer:      summarizeCustomer(customer),
		RecentEvents:  summarizeEvents(events),
		TotalEvents:   totalEvents,
		PurchaseStats: computePurchaseStats(purchases),
		WorkOrders:    partitionWorkOrders(orders, b.opts.RecentWorkOrders),
		Notes:         summarizeNotes(notes),
		GeneratedAt:   time.Now().UTC(),
	}
	view.Summary = renderSummary(view)

	if b.cache != nil {
		if err := b.cache.Set(ctx, customerID, view); err != nil {
			b.logger.Warn("context cache write failed", zap.Error(err))
		}
	}
	return view, nil
}

// SearchNotes runs a free-text query over a customer's knowledge notes.
// Without an attached searcher it falls back to substring matching in store
// order.
func (b *Builder) SearchNotes(ctx context.Context, customerID, query string, limit int) ([]NoteSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	if b.searcher != nil {
		notes, err := b.searcher.Search(ctx, customerID, query, limit)
		if err != nil {
			return nil, err
		}
		return summarizeNotes(notes).All, nil
	}

	notes, err := b.repos.Notes.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matched []profile.KnowledgeNote
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Content), needle) {
			matched = append(matched, n)
			if len(matched) == limit {
				break
			}
		}
	}
	return summarizeNotes(matched).All, nil
}

func summarizeCustomer(c *profile.Customer) CustomerSummary {
	return CustomerSummary{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Company:       c.Company,
		Status:        string(c.Status),
		CustomerSince: c.CustomerSince,
		TenureDays:    int(time.Since(c.CustomerSince).Hours() / 24),
		LifetimeValue: c.LifetimeValue,
		Tags:          c.Tags,
		CustomFields:  c.CustomFields,
	}
}

func summarizeEvents(events []profile.CustomerEvent) []EventSummary {
	out := make([]EventSummary, 0, len(events))
	for _, e := range events {
		out = append(out, EventSummary{
			ID:            e.ID.String(),
			EventType:     e.EventType,
			EventDate:     e.EventDate,
			Title:         e.Title,
			Description:   e.Description,
			Amount:        e.Amount,
			Status:        e.Status,
			SourceService: e.SourceService,
		})
	}
	return out
}

// computePurchaseStats derives count, total, and average from purchase rows
// rather than the profile's stored accumulator.
func computePurchaseStats(purchases []profile.Purchase) PurchaseStats {
	stats := PurchaseStats{
		TotalSpent:   decimal.Zero,
		AverageOrder: decimal.Zero,
	}
	if len(purchases) == 0 {
		return stats
	}

	productCounts := map[string]int{}
	var last time.Time
	for _, p := range purchases {
		stats.Count++
		stats.TotalSpent = stats.TotalSpent.Add(p.Total)
		if p.PurchaseDate.After(last) {
			last = p.PurchaseDate
		}
		if p.ProductName != "" {
			productCounts[p.ProductName]++
		}
	}
	stats.AverageOrder = stats.TotalSpent.Div(decimal.NewFromInt(int64(stats.Count))).Round(2)
	if !last.IsZero() {
		stats.LastPurchase = &last
	}

	type productCount struct {
		name  string
		count int
	}
	ranked := make([]productCount, 0, len(productCounts))
	for name, count := range productCounts {
		ranked = append(ranked, productCount{name, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	for i, pc := range ranked {
		if i == 3 {
			break
		}
		stats.TopProducts = append(stats.TopProducts, pc.name)
	}
	return stats
}

// partitionWorkOrders splits orders into all-open and most-recent slices.
// Input arrives ordered by opened_at descending.
func partitionWorkOrders(orders []profile.WorkOrder, recentLimit int) WorkOrderView {
	view := WorkOrderView{Total: len(orders)}
	for _, o := range orders {
		summary := summarizeWorkOrder(o)
		if o.IsOpen() {
			view.Open = append(view.Open, summary)
		}
		if len(view.Recent) < recentLimit {
			view.Recent = append(view.Recent, summary)
		}
	}
	return view
}

func summarizeWorkOrder(o profile.WorkOrder) WorkOrderSummary {
	return WorkOrderSummary{
		ID:          o.ID.String(),
		ExternalID:  o.ExternalID,
		Type:        o.Type,
		Description: o.Description,
		Status:      string(o.Status),
		Cost:        o.Cost,
		OpenedAt:    o.OpenedAt,
		CompletedAt: o.CompletedAt,
	}
}

func summarizeNotes(notes []profile.KnowledgeNote) NotesView {
	view := NotesView{}
	for _, n := range notes {
		summary := NoteSummary{
			ID:         n.ID.String(),
			Content:    n.Content,
			Category:   n.Category,
			Importance: string(n.Importance),
			Tags:       n.Tags,
			Source:     n.Source,
			CreatedAt:  n.CreatedAt,
		}
		view.All = append(view.All, summary)
		if n.Importance == profile.NoteImportanceCritical {
			view.Critical = append(view.Critical, summary)
		}
	}
	return view
}

var summaryTemplate = template.Must(template.New("summary").Parse(strings.TrimSpace(`
{{.Name}} ({{.Status}}) has been a customer for {{.TenureDays}} days with {{.PurchaseCount}} purchase(s) totaling {{.TotalSpent}}.
{{- if .OpenOrders}} {{.OpenOrders}} work order(s) open.{{end}}
{{- if .CriticalNotes}} {{.CriticalNotes}} critical note(s) on file.{{end}}
`)))

// renderSummary produces the one-paragraph prose line for downstream display
func renderSummary(view *CustomerContext) string {
	name := view.Customer.Name
	if name == "" {
		name = view.Customer.ID
	}
	var sb strings.Builder
	err := summaryTemplate.Execute(&sb, map[string]any{
		"Name":          name,
		"Status":        view.Customer.Status,
		"TenureDays":    view.Customer.TenureDays,
		"PurchaseCount": view.PurchaseStats.Count,
		"TotalSpent":    view.PurchaseStats.TotalSpent.StringFixed(2),
		"OpenOrders":    len(view.WorkOrders.Open),
		"CriticalNotes": len(view.Notes.Critical),
	})
	if err != nil {
		return ""
	}
	return sb.String()
}
