package service

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/safecampus/sentra/internal/domain"
)

// RepairDocumentRepository is the surface needed to re-embed one document.
type RepairDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingRepairService re-embeds documents whose embedding failed during
// ingestion. Driven by the background worker off the embedding_jobs queue.
type EmbeddingRepairService struct {
	docs     RepairDocumentRepository
	embedder EmbeddingClient
	retry    RetryPolicy
}

func NewEmbeddingRepairService(docs RepairDocumentRepository, embedder EmbeddingClient) *EmbeddingRepairService {
	return &EmbeddingRepairService{
		docs:     docs,
		embedder: embedder,
		retry:    DefaultRetryPolicy(),
	}
}

// RepairEmbedding generates and stores the embedding for one document. A
// split parent carries no embedding of its own, so its jobs are a no-op.
func (s *EmbeddingRepairService) RepairEmbedding(ctx context.Context, documentID string) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsChunk && doc.ChunkCount > 0 {
		return nil
	}
	if doc.HasEmbedding() {
		return nil
	}

	var vector []float32
	err = s.retry.Do(ctx, func() error {
		vec, embedErr := s.embedder.GenerateEmbedding(ctx, doc.Body)
		if embedErr != nil {
			if errors.Is(embedErr, domain.ErrDimensionMismatch) {
				return backoff.Permanent(embedErr)
			}
			return embedErr
		}
		vector = vec
		return nil
	})
	if err != nil {
		return err
	}

	return s.docs.UpdateEmbedding(ctx, doc.ID, vector)
}
