package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	ID            string                 `gorm:"type:varchar(64);primaryKey"`
	Name          string                 `gorm:"type:varchar(200)"`
	Email         string                 `gorm:"type:varchar(200);index"`
	Phone         string                 `gorm:"type:varchar(50)"`
	Company       string                 `gorm:"type:varchar(200)"`
	Status        profile.CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CustomerSince time.Time              `gorm:"not null"`
	LifetimeValue decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Tags          string                 `gorm:"type:jsonb"`
	CustomFields  string                 `gorm:"type:jsonb"`
	CreatedAt     time.Time              `gorm:"not null"`
	UpdatedAt     time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *profile.Customer {
	c := &profile.Customer{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Company:       m.Company,
		Status:        m.Status,
		CustomerSince: m.CustomerSince,
		LifetimeValue: m.LifetimeValue,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	unmarshalJSON(m.Tags, &c.Tags)
	unmarshalJSON(m.CustomFields, &c.CustomFields)
	return c
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *profile.Customer) {
	m.ID = c.ID
	m.Name = c.Name
	m.Email = c.Email
	m.Phone = c.Phone
	m.Company = c.Company
	m.Status = c.Status
	m.CustomerSince = c.CustomerSince
	m.LifetimeValue = c.LifetimeValue
	m.Tags = marshalJSON(c.Tags)
	m.CustomFields = marshalJSON(c.CustomFields)
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *profile.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

// CustomerEventModel is the persistence model for timeline entries.
// Seq is the arrival sequence; reads order by event_date with seq as the
// tie-break because the bus may deliver out of order.
type CustomerEventModel struct {
	Seq           int64            `gorm:"primaryKey;autoIncrement"`
	ID            uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	CustomerID    string           `gorm:"type:varchar(64);not null;index:idx_events_customer_date,priority:1"`
	EventType     string           `gorm:"type:varchar(100);not null"`
	EventDate     time.Time        `gorm:"type:timestamptz;not null;index:idx_events_customer_date,priority:2"`
	Title         string           `gorm:"type:varchar(300)"`
	Description   string           `gorm:"type:text"`
	Amount        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Status        string           `gorm:"type:varchar(50)"`
	Metadata      string           `gorm:"type:jsonb"`
	SourceService string           `gorm:"type:varchar(100);not null"`
	RawPayload    []byte           `gorm:"type:jsonb"`
	CreatedAt     time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerEventModel) TableName() string {
	return "customer_events"
}

// ToDomain converts the persistence model to a domain CustomerEvent.
func (m *CustomerEventModel) ToDomain() *profile.CustomerEvent {
	e := &profile.CustomerEvent{
		Seq:           m.Seq,
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		EventType:     m.EventType,
		EventDate:     m.EventDate,
		Title:         m.Title,
		Description:   m.Description,
		Amount:        m.Amount,
		Status:        m.Status,
		SourceService: m.SourceService,
		RawPayload:    m.RawPayload,
		CreatedAt:     m.CreatedAt,
	}
	unmarshalJSON(m.Metadata, &e.Metadata)
	return e
}

// FromDomain populates the persistence model from a domain CustomerEvent.
func (m *CustomerEventModel) FromDomain(e *profile.CustomerEvent) {
	m.Seq = e.Seq
	m.ID = e.ID
	m.CustomerID = e.CustomerID
	m.EventType = e.EventType
	m.EventDate = e.EventDate
	m.Title = e.Title
	m.Description = e.Description
	m.Amount = e.Amount
	m.Status = e.Status
	m.Metadata = marshalJSON(e.Metadata)
	m.SourceService = e.SourceService
	m.RawPayload = e.RawPayload
	m.CreatedAt = e.CreatedAt
}

// CustomerEventModelFromDomain creates a new persistence model from a domain CustomerEvent.
func CustomerEventModelFromDomain(e *profile.CustomerEvent) *CustomerEventModel {
	m := &CustomerEventModel{}
	m.FromDomain(e)
	return m
}

// PurchaseModel is the persistence model for the Purchase domain entity.
// Uniqueness of (customer_id, external_id) for non-empty external ids is
// enforced by a partial index in the SQL migrations; events without a
// producer purchase id insert plain rows.
type PurchaseModel struct {
	BaseModel
	CustomerID      string          `gorm:"type:varchar(64);not null;index"`
	ExternalID      string          `gorm:"type:varchar(100);index:idx_purchases_external"`
	ProductName     string          `gorm:"type:varchar(300)"`
	ProductSKU      string          `gorm:"type:varchar(100)"`
	Quantity        int             `gorm:"not null;default:1"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PurchaseDate    time.Time       `gorm:"type:timestamptz;not null"`
	WarrantyExpires *time.Time      `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (PurchaseModel) TableName() string {
	return "purchases"
}

// ToDomain converts the persistence model to a domain Purchase entity.
func (m *PurchaseModel) ToDomain() *profile.Purchase {
	return &profile.Purchase{
		BaseEntity:      m.BaseModel.ToDomain(),
		CustomerID:      m.CustomerID,
		ExternalID:      m.ExternalID,
		ProductName:     m.ProductName,
		ProductSKU:      m.ProductSKU,
		Quantity:        m.Quantity,
		Price:           m.Price,
		Total:           m.Total,
		PurchaseDate:    m.PurchaseDate,
		WarrantyExpires: m.WarrantyExpires,
	}
}

// FromDomain populates the persistence model from a domain Purchase entity.
func (m *PurchaseModel) FromDomain(p *profile.Purchase) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.CustomerID = p.CustomerID
	m.ExternalID = p.ExternalID
	m.ProductName = p.ProductName
	m.ProductSKU = p.ProductSKU
	m.Quantity = p.Quantity
	m.Price = p.Price
	m.Total = p.Total
	m.PurchaseDate = p.PurchaseDate
	m.WarrantyExpires = p.WarrantyExpires
}

// PurchaseModelFromDomain creates a new persistence model from a domain Purchase entity.
func PurchaseModelFromDomain(p *profile.Purchase) *PurchaseModel {
	m := &PurchaseModel{}
	m.FromDomain(p)
	return m
}

// WorkOrderModel is the persistence model for the WorkOrder domain entity.
type WorkOrderModel struct {
	BaseModel
	CustomerID  string                  `gorm:"type:varchar(64);not null;index"`
	ExternalID  string                  `gorm:"type:varchar(100);index:idx_work_orders_external"`
	Type        string                  `gorm:"type:varchar(100)"`
	Description string                  `gorm:"type:text"`
	Status      profile.WorkOrderStatus `gorm:"type:varchar(20);not null;default:'open'"`
	Priority    string                  `gorm:"type:varchar(20)"`
	AssignedTo  string                  `gorm:"type:varchar(100)"`
	Resolution  string                  `gorm:"type:text"`
	Cost        decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	OpenedAt    time.Time               `gorm:"type:timestamptz;not null"`
	CompletedAt *time.Time              `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (WorkOrderModel) TableName() string {
	return "work_orders"
}

// ToDomain converts the persistence model to a domain WorkOrder entity.
func (m *WorkOrderModel) ToDomain() *profile.WorkOrder {
	return &profile.WorkOrder{
		BaseEntity:  m.BaseModel.ToDomain(),
		CustomerID:  m.CustomerID,
		ExternalID:  m.ExternalID,
		Type:        m.Type,
		Description: m.Description,
		Status:      m.Status,
		Priority:    m.Priority,
		AssignedTo:  m.AssignedTo,
		Resolution:  m.Resolution,
		Cost:        m.Cost,
		OpenedAt:    m.OpenedAt,
		CompletedAt: m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain WorkOrder entity.
func (m *WorkOrderModel) FromDomain(w *profile.WorkOrder) {
	m.FromDomainBaseEntity(w.BaseEntity)
	m.CustomerID = w.CustomerID
	m.ExternalID = w.ExternalID
	m.Type = w.Type
	m.Description = w.Description
	m.Status = w.Status
	m.Priority = w.Priority
	m.AssignedTo = w.AssignedTo
	m.Resolution = w.Resolution
	m.Cost = w.Cost
	m.OpenedAt = w.OpenedAt
	m.CompletedAt = w.CompletedAt
}

// WorkOrderModelFromDomain creates a new persistence model from a domain WorkOrder entity.
func WorkOrderModelFromDomain(w *profile.WorkOrder) *WorkOrderModel {
	m := &WorkOrderModel{}
	m.FromDomain(w)
	return m
}

// KnowledgeNoteModel is the persistence model for the KnowledgeNote entity.
type KnowledgeNoteModel struct {
	BaseModel
	CustomerID string                 `gorm:"type:varchar(64);not null;index"`
	Content    string                 `gorm:"type:text;not null"`
	Category   string                 `gorm:"type:varchar(100)"`
	Importance profile.NoteImportance `gorm:"type:varchar(20);not null;default:'medium'"`
	Tags       string                 `gorm:"type:jsonb"`
	Source     string                 `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (KnowledgeNoteModel) TableName() string {
	return "knowledge_notes"
}

// ToDomain converts the persistence model to a domain KnowledgeNote entity.
func (m *KnowledgeNoteModel) ToDomain() *profile.KnowledgeNote {
	n := &profile.KnowledgeNote{
		BaseEntity: m.BaseModel.ToDomain(),
		CustomerID: m.CustomerID,
		Content:    m.Content,
		Category:   m.Category,
		Importance: m.Importance,
		Source:     m.Source,
	}
	unmarshalJSON(m.Tags, &n.Tags)
	return n
}

// FromDomain populates the persistence model from a domain KnowledgeNote entity.
func (m *KnowledgeNoteModel) FromDomain(n *profile.KnowledgeNote) {
	m.FromDomainBaseEntity(n.BaseEntity)
	m.CustomerID = n.CustomerID
	m.Content = n.Content
	m.Category = n.Category
	m.Importance = n.Importance
	m.Tags = marshalJSON(n.Tags)
	m.Source = n.Source
}

// KnowledgeNoteModelFromDomain creates a new persistence model from a domain KnowledgeNote entity.
func KnowledgeNoteModelFromDomain(n *profile.KnowledgeNote) *KnowledgeNoteModel {
	m := &KnowledgeNoteModel{}
	m.FromDomain(n)
	return m
}

// All returns the model set for schema auto-migration in tests and tooling
func All() []any {
	return []any{
		&CustomerModel{},
		&CustomerEventModel{},
		&PurchaseModel{},
		&WorkOrderModel{},
		&KnowledgeNoteModel{},
	}
}
