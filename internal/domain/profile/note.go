package profile

import (
	"strings"
	"unicode"

	"github.com/profilehub/backend/internal/domain/shared"
)

// NoteImportance grades how prominently a knowledge note should surface
type NoteImportance string

const (
	NoteImportanceLow      NoteImportance = "low"
	NoteImportanceMedium   NoteImportance = "medium"
	NoteImportanceHigh     NoteImportance = "high"
	NoteImportanceCritical NoteImportance = "critical"
)

// IsValid checks if the importance is one of the known values
func (i NoteImportance) IsValid() bool {
	switch i {
	case NoteImportanceLow, NoteImportanceMedium, NoteImportanceHigh, NoteImportanceCritical:
		return true
	}
	return false
}

// KnowledgeNote is a free-form fact worth remembering about a customer.
// Created directly from note events, or derived from other events when the
// payload is flagged important or the description runs long. The note holds
// a truncated summary; the full text stays in the event's raw_payload.
type KnowledgeNote struct {
	shared.BaseEntity
	CustomerID string
	Content    string
	Category   string
	Importance NoteImportance
	Tags       []string
	Source     string
}

// NewKnowledgeNote creates a note for the given customer
func NewKnowledgeNote(customerID, content string) *KnowledgeNote {
	return &KnowledgeNote{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		Content:    content,
		Importance: NoteImportanceMedium,
	}
}

// Summarize truncates text to at most maxLen runes, cutting at a word
// boundary where possible and appending an ellipsis.
func Summarize(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if maxLen <= 0 || len([]rune(text)) <= maxLen {
		return text
	}
	runes := []rune(text)[:maxLen]
	cut := len(runes)
	for i := len(runes) - 1; i > maxLen/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "…"
}
