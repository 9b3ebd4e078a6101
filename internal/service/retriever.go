package service

import (
	"context"
	"log"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/telemetry"
)

// DefaultRetrieveLimit bounds the context passed to the generator.
const DefaultRetrieveLimit = 4

// RetrievalResult is a document (or chunk) annotated with relevance.
// Scored is false on the lexical path, where no similarity exists.
// Transient: never persisted.
type RetrievalResult struct {
	Document *domain.Document
	Score    float32
	Scored   bool
}

// SearchRepository is the index query surface consumed by the retriever.
// VectorSearch covers chunks and unsplit parents (the rows that carry
// embeddings); TextSearch ranks parent documents by full-text relevance.
type SearchRepository interface {
	VectorSearch(ctx context.Context, embedding []float32, limit int) ([]*RetrievalResult, error)
	TextSearch(ctx context.Context, query string, limit int) ([]*RetrievalResult, error)
}

// Retriever returns the most relevant indexed units for a query, falling
// back from vector to lexical search. The fallback is strict: results from
// the two paths are never merged, because cosine similarity and lexical
// rank are not comparable.
type Retriever struct {
	repo SearchRepository
}

func NewRetriever(repo SearchRepository) *Retriever {
	return &Retriever{repo: repo}
}

// Retrieve returns up to limit results in descending relevance order.
// A nil queryVector (embedding unavailable) or an empty vector result set
// routes to the lexical path. Retrieval never fails: if both paths error,
// the result is empty — "no context found" is a valid state the caller
// must handle.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, queryVector []float32, limit int) []*RetrievalResult {
	if limit < 0 {
		limit = 0
	}
	if limit == 0 {
		return []*RetrievalResult{}
	}

	if len(queryVector) > 0 {
		results, err := r.repo.VectorSearch(ctx, queryVector, limit)
		if err != nil {
			log.Printf("vector search failed, falling back to text search: %v", err)
			telemetry.CaptureError(ctx, err)
		} else if len(results) > 0 {
			return clampResults(results, limit)
		}
	}

	results, err := r.repo.TextSearch(ctx, queryText, limit)
	if err != nil {
		log.Printf("text search failed, returning no context: %v", err)
		telemetry.CaptureError(ctx, err)
		return []*RetrievalResult{}
	}

	return clampResults(results, limit)
}

func clampResults(results []*RetrievalResult, limit int) []*RetrievalResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
