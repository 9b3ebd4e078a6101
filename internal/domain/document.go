package domain

import (
	"fmt"
	"time"
)

// DocumentCategory tags a document with its campus-safety topic.
type DocumentCategory string

const (
	CategoryGeneral    DocumentCategory = "general"
	CategoryEmergency  DocumentCategory = "emergency"
	CategoryPolicy     DocumentCategory = "policy"
	CategoryFacilities DocumentCategory = "facilities"
	CategoryHealth     DocumentCategory = "health"
	CategoryTransport  DocumentCategory = "transport"
)

// Document is a unit of indexed knowledge. Chunks are stored as documents
// too, with IsChunk set and ParentID pointing at the document they were
// split from. A parent that was split carries no embedding of its own; a
// parent small enough to stay unsplit carries exactly one.
type Document struct {
	ID         string
	OwnerID    string
	Title      string
	Body       string
	Category   DocumentCategory
	Visible    bool
	IsChunk    bool
	ParentID   string
	ChunkIndex int
	ChunkCount int
	Embedding  []float32
	SourceKey  string // object-store key of the original upload, if any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasEmbedding reports whether the document carries a vector.
func (d *Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// NewDocument creates a parent (non-chunk) document.
func NewDocument(id, ownerID, title, body string, category DocumentCategory, visible bool, now time.Time) *Document {
	return &Document{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Body:      body,
		Category:  category,
		Visible:   visible,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewChunk creates a chunk document derived from a parent.
func NewChunk(id string, parent *Document, index int, text string, now time.Time) *Document {
	return &Document{
		ID:         id,
		OwnerID:    parent.OwnerID,
		Title:      parent.Title,
		Body:       text,
		Category:   parent.Category,
		Visible:    parent.Visible,
		IsChunk:    true,
		ParentID:   parent.ID,
		ChunkIndex: index,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateDocument checks structural invariants before persistence.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.OwnerID == "" {
		return fmt.Errorf("document OwnerID is required")
	}
	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}
	if d.Body == "" {
		return fmt.Errorf("document Body is required")
	}
	if !IsValidCategory(d.Category) {
		return fmt.Errorf("document Category is invalid: %s", d.Category)
	}
	if d.IsChunk {
		if d.ParentID == "" {
			return fmt.Errorf("chunk document requires a ParentID")
		}
		if d.ChunkIndex < 0 {
			return fmt.Errorf("chunk document ChunkIndex cannot be negative")
		}
	} else {
		if d.ParentID != "" {
			return fmt.Errorf("parent document cannot have a ParentID")
		}
		if d.ChunkCount > 0 && d.HasEmbedding() {
			return fmt.Errorf("split parent document cannot carry its own embedding")
		}
	}
	return nil
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c DocumentCategory) bool {
	switch c {
	case CategoryGeneral, CategoryEmergency, CategoryPolicy,
		CategoryFacilities, CategoryHealth, CategoryTransport:
		return true
	}
	return false
}
