package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/pagination"
	"github.com/safecampus/sentra/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.OwnerID, d.Title, d.Body, d.Category, d.Visible, d.IsChunk, nullableString(d.ParentID),
		d.ChunkIndex, d.ChunkCount, embeddingValue(d.Embedding), nullableString(d.SourceKey), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	d, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) ListByOwnerWithCursor(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at
			 FROM documents
			 WHERE owner_id = $1 AND NOT is_chunk AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			ownerID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at
			 FROM documents
			 WHERE owner_id = $1 AND NOT is_chunk
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			ownerID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListChunks returns a parent's chunks in split order.
func (r *DocumentRepository) ListChunks(ctx context.Context, parentID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, title, body, category, visible, is_chunk, parent_id, chunk_index, chunk_count, embedding, source_key, created_at, updated_at
		 FROM documents WHERE parent_id = $1 ORDER BY chunk_index ASC`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// UpdateMetadata changes title, category, and visibility on the parent and
// propagates the shared fields to its chunks.
func (r *DocumentRepository) UpdateMetadata(ctx context.Context, d *domain.Document) error {
	d.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET title = $1, category = $2, visible = $3, updated_at = $4
		 WHERE id = $5 AND NOT is_chunk`,
		d.Title, d.Category, d.Visible, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}

	_, err = r.db.Exec(ctx,
		`UPDATE documents SET title = $1, category = $2, visible = $3, updated_at = $4
		 WHERE parent_id = $5`,
		d.Title, d.Category, d.Visible, d.UpdatedAt, d.ID,
	)
	return err
}

// Delete removes a document, parent or chunk. Deleting a parent takes its
// chunks and pending embedding jobs along via foreign keys.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DeleteByParent removes every chunk under a parent, leaving the parent in
// place. Useful when a document's body is re-split.
func (r *DocumentRepository) DeleteByParent(ctx context.Context, parentID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE parent_id = $1`,
		parentID,
	)
	return err
}

func (r *DocumentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// embeddingValue maps an optional vector to its column value.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func scanDocumentRow(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var parentID, sourceKey *string
	var vec *pgvector.Vector
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Body, &d.Category, &d.Visible, &d.IsChunk,
		&parentID, &d.ChunkIndex, &d.ChunkCount, &vec, &sourceKey, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
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
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
