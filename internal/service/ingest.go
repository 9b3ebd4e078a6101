package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/telemetry"
)

// DefaultChunkThreshold is the normalized length above which a document is
// split into chunks instead of being embedded whole.
const DefaultChunkThreshold = 2000

// IngestDocumentRepository is the index write surface used by ingestion.
type IngestDocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
}

// EmbeddingJobEnqueuer queues background re-embedding for documents whose
// embedding could not be generated during ingestion.
type EmbeddingJobEnqueuer interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// IngestInput is raw content to index.
type IngestInput struct {
	OwnerID   string
	Title     string
	Body      string
	Category  domain.DocumentCategory
	Visible   bool
	SourceKey string
}

// IngestResult reports what was indexed.
type IngestResult struct {
	Parent         *domain.Document
	Chunks         []*domain.Document
	FailedEmbedIDs []string // document IDs queued for background re-embedding
}

// IngestConfig tunes chunking and embedding fan-out.
type IngestConfig struct {
	ChunkThreshold int
	Chunk          ChunkConfig
	Workers        int
	EmbedRate      float64 // embedding calls per second across all chunks
}

// IngestionService turns raw content into indexed, embedded units:
// normalize, chunk when oversized, embed each chunk with bounded
// concurrency, and index everything in one transaction. A chunk whose
// embedding fails is still indexed (reachable lexically via its parent) and
// queued for background repair; sibling chunks are unaffected.
type IngestionService struct {
	tx       TxRunner
	embedder EmbeddingClient
	uuidGen  UUIDGenerator
	retry    RetryPolicy
	limiter  *rate.Limiter
	cfg      IngestConfig
}

func NewIngestionService(
	tx TxRunner,
	embedder EmbeddingClient,
	uuidGen UUIDGenerator,
	cfg IngestConfig,
) *IngestionService {
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = DefaultChunkThreshold
	}
	if cfg.Chunk.Size <= 0 || cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		cfg.Chunk = DefaultChunkConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	limit := rate.Inf
	if cfg.EmbedRate > 0 {
		limit = rate.Limit(cfg.EmbedRate)
	}

	return &IngestionService{
		tx:       tx,
		embedder: embedder,
		uuidGen:  uuidGen,
		retry:    DefaultRetryPolicy(),
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
	}
}

// Ingest indexes one document. The caller is expected to pass a context
// detached from any single HTTP request so in-flight ingestion runs to
// completion on client disconnect.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.OwnerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}
	if input.Title == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "title is required")
	}
	if input.Category == "" {
		input.Category = domain.CategoryGeneral
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, domain.ErrInvalidCategory
	}

	body := Normalize(input.Body)
	if body == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "body is required")
	}

	spanCtx, span := telemetry.StartSpan(ctx, "rag.ingest", telemetry.SpanAttributes{
		UserID:    input.OwnerID,
		Operation: "ingest",
	})
	defer span.End()
	ctx = spanCtx

	now := time.Now().UTC()
	parent := domain.NewDocument(s.uuidGen.NewString(), input.OwnerID, input.Title, body, input.Category, input.Visible, now)
	parent.SourceKey = input.SourceKey

	var chunks []*domain.Document
	if len([]rune(body)) > s.cfg.ChunkThreshold {
		pieces := ChunkText(body, s.cfg.Chunk)
		parent.ChunkCount = len(pieces)

		chunks = make([]*domain.Document, len(pieces))
		for i, piece := range pieces {
			chunks[i] = domain.NewChunk(s.uuidGen.NewString(), parent, piece.Index, piece.Text, now)
		}

		vectors := s.embedAll(ctx, pieces)
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	} else {
		vector, err := s.embed(ctx, body)
		if err != nil {
			log.Printf("embedding failed for document %s, indexing without vector: %v", parent.ID, err)
			telemetry.CaptureError(ctx, err)
		} else {
			parent.Embedding = vector
		}
	}

	if err := domain.ValidateDocument(parent); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	result := &IngestResult{Parent: parent, Chunks: chunks}

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, parent); err != nil {
			return err
		}
		if !parent.HasEmbedding() && parent.ChunkCount == 0 {
			if err := s.enqueueRepair(ctx, repos, parent.ID); err != nil {
				return err
			}
			result.FailedEmbedIDs = append(result.FailedEmbedIDs, parent.ID)
		}
		for _, chunk := range chunks {
			if err := repos.Documents().Create(ctx, chunk); err != nil {
				return err
			}
			if !chunk.HasEmbedding() {
				if err := s.enqueueRepair(ctx, repos, chunk.ID); err != nil {
					return err
				}
				result.FailedEmbedIDs = append(result.FailedEmbedIDs, chunk.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// embedAll dispatches chunk embeddings with a bounded worker pool and a
// shared rate limiter. Failure domains are isolated per chunk: a failed
// embedding leaves a nil vector at that index and never cancels siblings.
func (s *IngestionService) embedAll(ctx context.Context, pieces []Chunk) [][]float32 {
	vectors := make([][]float32, len(pieces))

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for i := range pieces {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.limiter.Wait(ctx); err != nil {
				log.Printf("embedding rate limiter aborted for chunk %d: %v", i, err)
				return
			}

			vector, err := s.embed(ctx, pieces[i].Text)
			if err != nil {
				log.Printf("embedding failed for chunk %d, indexing without vector: %v", i, err)
				telemetry.CaptureError(ctx, err)
				return
			}
			vectors[i] = vector
		}(i)
	}
	wg.Wait()

	return vectors
}

func (s *IngestionService) embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := s.retry.Do(ctx, func() error {
		vec, embedErr := s.embedder.GenerateEmbedding(ctx, text)
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
		return nil, err
	}
	return vector, nil
}

func (s *IngestionService) enqueueRepair(ctx context.Context, repos TxRepositories, documentID string) error {
	job := domain.NewEmbeddingJob(s.uuidGen.NewString(), documentID, time.Now().UTC())
	return repos.EmbeddingJobs().Create(ctx, job)
}
