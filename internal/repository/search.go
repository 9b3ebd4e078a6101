package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/service"
)

// SearchRepository implements the two retrieval paths over the documents
// table. The vector path searches the rows that carry embeddings (chunks and
// unsplit parents); the lexical path ranks parent documents by full-text
// relevance and carries no similarity score.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// VectorSearch returns the nearest embedded rows by cosine distance.
// Similarity is reported as 1 - distance, clamped to [0, 1].
func (r *SearchRepository) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]*service.RetrievalResult, error) {
	if limit <= 0 {
		limit = service.DefaultRetrieveLimit
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at,
		        LEAST(GREATEST(1.0 - (embedding <=> $1), 0.0), 1.0) AS similarity
		 FROM documents
		 WHERE embedding IS NOT NULL AND visible
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredRows(rows, true)
}

// TextSearch ranks visible parent documents by full-text relevance. Results
// are unscored: lexical rank is not comparable to cosine similarity.
func (r *SearchRepository) TextSearch(ctx context.Context, query string, limit int) ([]*service.RetrievalResult, error) {
	if limit <= 0 {
		limit = service.DefaultRetrieveLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at,
		        ts_rank(body_tsv, websearch_to_tsquery('english', $1)) AS rank
		 FROM documents
		 WHERE NOT is_chunk AND visible AND body_tsv @@ websearch_to_tsquery('english', $1)
		 ORDER BY rank DESC
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredRows(rows, false)
}

func scanScoredRows(rows pgx.Rows, scored bool) ([]*service.RetrievalResult, error) {
	results := make([]*service.RetrievalResult, 0)
	for rows.Next() {
		var d domain.Document
		var parentID, sourceKey *string
		var vec *pgvector.Vector
		var score float64
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Body, &d.Category, &d.Visible, &d.IsChunk,
			&parentID, &d.ChunkIndex, &d.ChunkCount, &vec, &sourceKey, &d.CreatedAt, &d.UpdatedAt, &score); err != nil {
			return nil, err
		}
		if parentID != nil {
			d.ParentID = *parentID
		}
		if sourceKey != nil {
			d.SourceKey = *sourceKey
		}
		if vec != nil {
			d.Embedding = vec.Slice()
		}
		result := &service.RetrievalResult{Document: &d, Scored: scored}
		if scored {
			result.Score = float32(score)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
