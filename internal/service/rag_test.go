package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/domain"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockGenerationClient is a mock implementation of GenerationClient
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

// MockRetriever is a mock implementation of RetrieverInterface
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, queryText string, queryVector []float32, limit int) []*RetrievalResult {
	args := m.Called(ctx, queryText, queryVector, limit)
	return args.Get(0).([]*RetrievalResult)
}

// MockConversationRepo is a mock implementation of ConversationRepository
type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) SetLastMessage(ctx context.Context, id, preview string, at time.Time) error {
	args := m.Called(ctx, id, preview, at)
	return args.Error(0)
}

// MockMessageRepo is a mock implementation of MessageRepository
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockUUIDGenerator returns canned IDs in order
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

type ragFixture struct {
	embedder      *MockEmbeddingClient
	generator     *MockGenerationClient
	retriever     *MockRetriever
	conversations *MockConversationRepo
	messages      *MockMessageRepo
	svc           *RAGService
}

func newRAGFixture(uuids ...string) *ragFixture {
	f := &ragFixture{
		embedder:      new(MockEmbeddingClient),
		generator:     new(MockGenerationClient),
		retriever:     new(MockRetriever),
		conversations: new(MockConversationRepo),
		messages:      new(MockMessageRepo),
	}
	f.svc = NewRAGService(f.embedder, f.generator, f.retriever, f.conversations, f.messages, NewMockUUIDGenerator(uuids...), RAGConfig{})
	f.svc.retry = RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond}
	return f
}

func TestRAGService_Ask(t *testing.T) {
	ctx := context.Background()
	vector := []float32{0.1, 0.2}

	t.Run("answers with retrieved context and persists the exchange", func(t *testing.T) {
		f := newRAGFixture("conv-1", "msg-user", "msg-model")

		results := []*RetrievalResult{scoredResult("doc-1", 0.9)}
		f.embedder.On("GenerateEmbedding", mock.Anything, "Where are the fire exits?").Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, "Where are the fire exits?", vector, DefaultRetrieveLimit).Return(results)
		f.generator.On("Generate", mock.Anything, SystemInstruction, mock.Anything).Return("Exits are marked on each floor. [1]", nil)
		f.conversations.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ID == "conv-1" && c.UserID == "user-1" && c.Title == "Where are the fire exits?"
		})).Return(nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Role == domain.RoleUser && m.Content == "Where are the fire exits?"
		})).Return(nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Role == domain.RoleModel && m.Content == "Exits are marked on each floor. [1]"
		})).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, "conv-1", mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "Where are the fire exits?"})

		require.NoError(t, err)
		assert.Equal(t, "Exits are marked on each floor. [1]", output.Answer)
		assert.Equal(t, "conv-1", output.ConversationID)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "doc-1", output.Sources[0].DocumentID)
		assert.True(t, output.Sources[0].Scored)
		f.conversations.AssertExpectations(t)
		f.messages.AssertExpectations(t)
	})

	t.Run("rejects empty question", func(t *testing.T) {
		f := newRAGFixture()

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "   "})

		require.ErrorIs(t, err, domain.ErrEmptyQuestion)
		assert.Nil(t, output)
	})

	t.Run("rejects oversized question", func(t *testing.T) {
		f := newRAGFixture()

		question := strings.Repeat("a", DefaultMaxQuestionChars+1)
		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: question})

		require.ErrorIs(t, err, domain.ErrQuestionTooLong)
		assert.Nil(t, output)
	})

	t.Run("rejects missing user ID", func(t *testing.T) {
		f := newRAGFixture()

		output, err := f.svc.Ask(ctx, AskInput{Question: "valid question"})

		require.Error(t, err)
		assert.Nil(t, output)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("degrades to lexical retrieval when embedding fails", func(t *testing.T) {
		f := newRAGFixture("conv-1", "msg-user", "msg-model")

		results := []*RetrievalResult{unscoredResult("doc-1")}
		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
		f.retriever.On("Retrieve", mock.Anything, "question about exits", []float32(nil), DefaultRetrieveLimit).Return(results)
		f.generator.On("Generate", mock.Anything, SystemInstruction, mock.Anything).Return("answer", nil)
		f.conversations.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "question about exits"})

		require.NoError(t, err)
		assert.Equal(t, "answer", output.Answer)
		require.Len(t, output.Sources, 1)
		assert.False(t, output.Sources[0].Scored)
	})

	t.Run("returns the degraded answer when generation fails", func(t *testing.T) {
		f := newRAGFixture("conv-1", "msg-user", "msg-model")

		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, mock.Anything, vector, DefaultRetrieveLimit).Return([]*RetrievalResult{})
		f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))
		f.conversations.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "question"})

		require.NoError(t, err)
		assert.Equal(t, DegradedAnswer, output.Answer)
		assert.Empty(t, output.Sources)
	})

	t.Run("returns the answer even when persistence fails", func(t *testing.T) {
		f := newRAGFixture("conv-1")

		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, mock.Anything, vector, DefaultRetrieveLimit).Return([]*RetrievalResult{})
		f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)
		f.conversations.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "question"})

		require.NoError(t, err)
		assert.Equal(t, "answer", output.Answer)
		assert.Empty(t, output.ConversationID)
	})

	t.Run("continues an existing conversation", func(t *testing.T) {
		f := newRAGFixture("msg-user", "msg-model")

		existing := domain.NewConversation("conv-7", "user-1", "first question", time.Now().UTC())
		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, mock.Anything, vector, DefaultRetrieveLimit).Return([]*RetrievalResult{})
		f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)
		f.conversations.On("GetByIDAndUser", mock.Anything, "conv-7", "user-1").Return(existing, nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, "conv-7", mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "follow up", ConversationID: "conv-7"})

		require.NoError(t, err)
		assert.Equal(t, "conv-7", output.ConversationID)
		f.conversations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("starts a new thread for an unknown conversation ID", func(t *testing.T) {
		f := newRAGFixture("conv-new", "msg-user", "msg-model")

		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, mock.Anything, vector, DefaultRetrieveLimit).Return([]*RetrievalResult{})
		f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)
		f.conversations.On("GetByIDAndUser", mock.Anything, "missing", "user-1").Return(nil, domain.ErrConversationNotFound)
		f.conversations.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ID == "conv-new" && c.UserID == "user-1"
		})).Return(nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, "conv-new", mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "question", ConversationID: "missing"})

		require.NoError(t, err)
		assert.Equal(t, "conv-new", output.ConversationID)
	})

	t.Run("attributes chunk sources to the parent document", func(t *testing.T) {
		f := newRAGFixture("conv-1", "msg-user", "msg-model")

		now := time.Now().UTC()
		parent := domain.NewDocument("parent-1", "user-1", "Big Doc", strings.Repeat("text ", 500), domain.CategoryEmergency, true, now)
		chunk := domain.NewChunk("chunk-3", parent, 2, "chunk body", now)
		results := []*RetrievalResult{{Document: chunk, Score: 0.8, Scored: true}}

		f.embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(vector, nil)
		f.retriever.On("Retrieve", mock.Anything, mock.Anything, vector, DefaultRetrieveLimit).Return(results)
		f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)
		f.conversations.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("SetLastMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		output, err := f.svc.Ask(ctx, AskInput{UserID: "user-1", Question: "question"})

		require.NoError(t, err)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "parent-1", output.Sources[0].DocumentID)
		assert.Equal(t, "Big Doc", output.Sources[0].Title)
	})
}
