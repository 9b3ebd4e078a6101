package service

import (
	"context"
	"log"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/pagination"
	"github.com/safecampus/sentra/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByOwnerWithCursor(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	ListChunks(ctx context.Context, parentID string) ([]*domain.Document, error)
	UpdateMetadata(ctx context.Context, d *domain.Document) error
	Delete(ctx context.Context, id string) error
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// ObjectStore removes archived source files when their document goes away.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
}

// DocumentService handles management of indexed documents: reads, metadata
// updates, and deletion. Creation goes through IngestionService.
type DocumentService struct {
	docRepo DocumentRepositoryInterface
	store   ObjectStore
}

// NewDocumentService creates a new DocumentService. store may be nil when no
// object storage is configured.
func NewDocumentService(docRepo DocumentRepositoryInterface, store ObjectStore) *DocumentService {
	return &DocumentService{
		docRepo: docRepo,
		store:   store,
	}
}

type ListDocumentsInput struct {
	OwnerID string
	Cursor  string
	Limit   int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// UpdateDocumentInput carries a partial metadata update. Nil fields keep
// their current value.
type UpdateDocumentInput struct {
	DocumentID string
	Title      *string
	Category   *domain.DocumentCategory
	Visible    *bool
}

// Get returns a document and, for a split parent, its chunks. Chunks are
// hidden from listings but stay addressable by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, []*domain.Document, error) {
	if id == "" {
		return nil, nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var chunks []*domain.Document
	if doc.ChunkCount > 0 {
		chunks, err = s.docRepo.ListChunks(ctx, doc.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	return doc, chunks, nil
}

// List returns the owner's parent documents, newest first.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	if input.OwnerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	page, err := s.docRepo.ListByOwnerWithCursor(ctx, input.OwnerID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// UpdateMetadata applies a partial update to a parent document. Title,
// category, and visibility propagate to chunks; the body is immutable
// (re-ingest to change content).
func (s *DocumentService) UpdateMetadata(ctx context.Context, input UpdateDocumentInput) (*domain.Document, error) {
	if input.DocumentID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.UpdateMetadata", telemetry.SpanAttributes{
		DocumentID: input.DocumentID,
		Operation:  "update",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.IsChunk {
		return nil, domain.ErrDocumentNotFound
	}

	if input.Title != nil {
		doc.Title = *input.Title
	}
	if input.Category != nil {
		doc.Category = *input.Category
	}
	if input.Visible != nil {
		doc.Visible = *input.Visible
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document update", err)
	}

	if err := s.docRepo.UpdateMetadata(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Delete removes a document. Deleting a parent takes its chunks and pending
// embedding jobs with it; a single chunk can be deleted on its own. The
// archived source file, if any, is removed best-effort.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	if doc.SourceKey != "" && s.store != nil {
		if err := s.store.Delete(ctx, doc.SourceKey); err != nil {
			log.Printf("failed to delete archived source %s for document %s: %v", doc.SourceKey, id, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return nil
}
