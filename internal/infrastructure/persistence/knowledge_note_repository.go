package persistence

import (
	"context"

	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormKnowledgeNoteRepository implements profile.KnowledgeNoteRepository using GORM
type GormKnowledgeNoteRepository struct {
	db *gorm.DB
}

// NewGormKnowledgeNoteRepository creates a new GormKnowledgeNoteRepository
func NewGormKnowledgeNoteRepository(db *gorm.DB) *GormKnowledgeNoteRepository {
	return &GormKnowledgeNoteRepository{db: db}
}

// Save inserts a new knowledge note
func (r *GormKnowledgeNoteRepository) Save(ctx context.Context, note *profile.KnowledgeNote) error {
	model := models.KnowledgeNoteModelFromDomain(note)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByCustomer returns all notes for a customer, newest first
func (r *GormKnowledgeNoteRepository) FindByCustomer(ctx context.Context, customerID string) ([]profile.KnowledgeNote, error) {
	var noteModels []models.KnowledgeNoteModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&noteModels).Error; err != nil {
		return nil, err
	}

	notes := make([]profile.KnowledgeNote, len(noteModels))
	for i, model := range noteModels {
		notes[i] = *model.ToDomain()
	}
	return notes, nil
}
