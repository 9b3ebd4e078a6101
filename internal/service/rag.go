package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/telemetry"
)

// DefaultMaxQuestionChars bounds incoming questions.
const DefaultMaxQuestionChars = 2000

// DegradedAnswer is returned when generation fails unrecoverably. It is a
// stable, clearly-labeled message; raw provider errors never reach users.
const DegradedAnswer = "I couldn't generate a response right now. Please try again in a moment, or contact campus support if the problem persists."

// EmbeddingClient converts text to a fixed-dimensionality vector.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient produces an answer from a system instruction and prompt.
type GenerationClient interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// RetrieverInterface returns relevant context for a query.
type RetrieverInterface interface {
	Retrieve(ctx context.Context, queryText string, queryVector []float32, limit int) []*RetrievalResult
}

// ConversationRepository is the conversation store surface consumed by the
// orchestrator.
type ConversationRepository interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Conversation, error)
	SetLastMessage(ctx context.Context, id, preview string, at time.Time) error
}

// MessageRepository appends turns to a conversation.
type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
}

// AskInput is one question from one user, optionally continuing a thread.
type AskInput struct {
	UserID         string
	Question       string
	ConversationID string
}

// Source describes one context document that grounded the answer.
type Source struct {
	DocumentID string
	Title      string
	Category   domain.DocumentCategory
	Score      float32
	Scored     bool
}

// AskOutput is the grounded answer plus its provenance.
type AskOutput struct {
	Answer         string
	Sources        []Source
	ConversationID string
}

// RAGConfig tunes the ask pipeline.
type RAGConfig struct {
	RetrieveLimit    int
	MaxQuestionChars int
}

// RAGService orchestrates the ask pipeline: embed the question, retrieve
// context (degrading to lexical search when embedding fails), generate a
// grounded answer, and persist the exchange best-effort.
type RAGService struct {
	embedder      EmbeddingClient
	generator     GenerationClient
	retriever     RetrieverInterface
	conversations ConversationRepository
	messages      MessageRepository
	uuidGen       UUIDGenerator
	retry         RetryPolicy
	cfg           RAGConfig
}

func NewRAGService(
	embedder EmbeddingClient,
	generator GenerationClient,
	retriever RetrieverInterface,
	conversations ConversationRepository,
	messages MessageRepository,
	uuidGen UUIDGenerator,
	cfg RAGConfig,
) *RAGService {
	if cfg.RetrieveLimit <= 0 {
		cfg.RetrieveLimit = DefaultRetrieveLimit
	}
	if cfg.MaxQuestionChars <= 0 {
		cfg.MaxQuestionChars = DefaultMaxQuestionChars
	}
	return &RAGService{
		embedder:      embedder,
		generator:     generator,
		retriever:     retriever,
		conversations: conversations,
		messages:      messages,
		uuidGen:       uuidGen,
		retry:         DefaultRetryPolicy(),
		cfg:           cfg,
	}
}

// Ask answers one question. Only validation errors are returned; provider
// failures degrade (embedding failure falls back to lexical retrieval,
// generation failure yields DegradedAnswer) and persistence failures are
// logged without failing the request.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if len([]rune(question)) > s.cfg.MaxQuestionChars {
		return nil, domain.ErrQuestionTooLong
	}
	if input.UserID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	spanCtx, span := telemetry.StartSpan(ctx, "rag.ask", telemetry.SpanAttributes{UserID: input.UserID})
	defer span.End()
	ctx = spanCtx

	vector := s.embedQuestion(ctx, question)

	results := s.retriever.Retrieve(ctx, question, vector, s.cfg.RetrieveLimit)

	answer := s.generateAnswer(ctx, question, results)

	conversationID := s.persistExchange(ctx, input.UserID, input.ConversationID, question, answer)

	return &AskOutput{
		Answer:         answer,
		Sources:        sourcesFromResults(results),
		ConversationID: conversationID,
	}, nil
}

// embedQuestion returns nil on failure: the pipeline degrades to lexical
// retrieval instead of aborting.
func (s *RAGService) embedQuestion(ctx context.Context, question string) []float32 {
	var vector []float32
	err := s.retry.Do(ctx, func() error {
		vec, embedErr := s.embedder.GenerateEmbedding(ctx, question)
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
		log.Printf("question embedding failed, degrading to text search: %v", err)
		telemetry.CaptureError(ctx, err)
		return nil
	}
	return vector
}

func (s *RAGService) generateAnswer(ctx context.Context, question string, results []*RetrievalResult) string {
	prompt := BuildPrompt(question, results)

	var answer string
	err := s.retry.Do(ctx, func() error {
		text, genErr := s.generator.Generate(ctx, SystemInstruction, prompt)
		if genErr != nil {
			return genErr
		}
		answer = text
		return nil
	})
	if err != nil {
		log.Printf("answer generation failed, returning degraded answer: %v", err)
		telemetry.CaptureError(ctx, err)
		return DegradedAnswer
	}
	return answer
}

// persistExchange appends the turn to the conversation store. Best-effort:
// any failure is logged and the answer is still returned to the user. An
// unknown or foreign conversation ID starts a new thread.
func (s *RAGService) persistExchange(ctx context.Context, userID, conversationID, question, answer string) string {
	now := time.Now().UTC()

	conv, err := s.resolveConversation(ctx, userID, conversationID, question, now)
	if err != nil {
		log.Printf("conversation write failed (answer still returned): %v", err)
		telemetry.CaptureError(ctx, err)
		return ""
	}

	userMsg := domain.NewMessage(s.uuidGen.NewString(), conv.ID, userID, domain.RoleUser, question, now)
	modelMsg := domain.NewMessage(s.uuidGen.NewString(), conv.ID, userID, domain.RoleModel, answer, now)

	if err := s.messages.Create(ctx, userMsg); err != nil {
		log.Printf("message write failed (answer still returned): %v", err)
		telemetry.CaptureError(ctx, err)
		return conv.ID
	}
	if err := s.messages.Create(ctx, modelMsg); err != nil {
		log.Printf("message write failed (answer still returned): %v", err)
		telemetry.CaptureError(ctx, err)
		return conv.ID
	}

	preview := domain.Truncate(answer, domain.LastMessagePreviewChars)
	if err := s.conversations.SetLastMessage(ctx, conv.ID, preview, now); err != nil {
		log.Printf("conversation preview update failed: %v", err)
		telemetry.CaptureError(ctx, err)
	}

	return conv.ID
}

func (s *RAGService) resolveConversation(ctx context.Context, userID, conversationID, question string, now time.Time) (*domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.conversations.GetByIDAndUser(ctx, conversationID, userID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, domain.ErrConversationNotFound) {
			return nil, err
		}
		// Unknown or not owned by this user: start a new thread.
	}

	conv := domain.NewConversation(s.uuidGen.NewString(), userID, question, now)
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func sourcesFromResults(results []*RetrievalResult) []Source {
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		doc := r.Document
		id := doc.ID
		if doc.IsChunk {
			id = doc.ParentID
		}
		sources = append(sources, Source{
			DocumentID: id,
			Title:      doc.Title,
			Category:   doc.Category,
			Score:      r.Score,
			Scored:     r.Scored,
		})
	}
	return sources
}
