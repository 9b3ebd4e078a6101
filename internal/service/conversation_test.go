package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/pagination"
)

// MockConversationListRepo is a mock implementation of ConversationListRepository
type MockConversationListRepo struct {
	mock.Mock
}

func (m *MockConversationListRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationListRepo) ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConversationPageResult), args.Error(1)
}

func (m *MockConversationListRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMessageListRepo is a mock implementation of MessageListRepository
type MockMessageListRepo struct {
	mock.Mock
}

func (m *MockMessageListRepo) ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func testConversation(id, userID string) *domain.Conversation {
	return domain.NewConversation(id, userID, "Where are the fire exits?", time.Now().UTC())
}

func TestConversationService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user's conversations with paging info", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		svc := NewConversationService(convRepo, new(MockMessageListRepo))

		items := []*domain.Conversation{testConversation("conv-1", "user-1"), testConversation("conv-2", "user-1")}
		convRepo.On("ListByUserWithCursor", mock.Anything, "user-1", (*pagination.Cursor)(nil), 20).Return(&ConversationPageResult{
			Items:      items,
			NextCursor: "next",
			HasMore:    true,
		}, nil)

		out, err := svc.List(ctx, ListConversationsInput{UserID: "user-1", Limit: 20})

		require.NoError(t, err)
		assert.Equal(t, items, out.Items)
		assert.Equal(t, "next", out.Cursor)
		assert.True(t, out.HasMore)
	})

	t.Run("passes a decoded cursor through", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		svc := NewConversationService(convRepo, new(MockMessageListRepo))

		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		encoded := pagination.EncodeCursor("conv-5", ts)
		convRepo.On("ListByUserWithCursor", mock.Anything, "user-1", mock.MatchedBy(func(c *pagination.Cursor) bool {
			return c != nil && c.LastID == "conv-5" && c.Timestamp.Equal(ts)
		}), 10).Return(&ConversationPageResult{}, nil)

		_, err := svc.List(ctx, ListConversationsInput{UserID: "user-1", Cursor: encoded, Limit: 10})

		require.NoError(t, err)
		convRepo.AssertExpectations(t)
	})

	t.Run("rejects an invalid cursor", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		svc := NewConversationService(convRepo, new(MockMessageListRepo))

		_, err := svc.List(ctx, ListConversationsInput{UserID: "user-1", Cursor: "not base64!!"})

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		convRepo.AssertNotCalled(t, "ListByUserWithCursor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a missing user ID", func(t *testing.T) {
		svc := NewConversationService(new(MockConversationListRepo), new(MockMessageListRepo))

		_, err := svc.List(ctx, ListConversationsInput{})

		require.Error(t, err)
	})
}

func TestConversationService_Messages(t *testing.T) {
	ctx := context.Background()

	t.Run("returns messages for an owned conversation", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		msgRepo := new(MockMessageListRepo)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("GetByIDAndUser", mock.Anything, "conv-1", "user-1").Return(testConversation("conv-1", "user-1"), nil)
		msgs := []*domain.Message{
			domain.NewMessage("msg-1", "conv-1", "user-1", domain.RoleUser, "question", time.Now().UTC()),
			domain.NewMessage("msg-2", "conv-1", "user-1", domain.RoleModel, "answer", time.Now().UTC()),
		}
		msgRepo.On("ListByConversation", mock.Anything, "conv-1").Return(msgs, nil)

		got, err := svc.Messages(ctx, "conv-1", "user-1")

		require.NoError(t, err)
		assert.Equal(t, msgs, got)
	})

	t.Run("refuses a conversation owned by someone else", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		msgRepo := new(MockMessageListRepo)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("GetByIDAndUser", mock.Anything, "conv-1", "user-2").Return(nil, domain.ErrConversationNotFound)

		_, err := svc.Messages(ctx, "conv-1", "user-2")

		require.ErrorIs(t, err, domain.ErrConversationNotFound)
		msgRepo.AssertNotCalled(t, "ListByConversation", mock.Anything, mock.Anything)
	})

	t.Run("rejects missing IDs", func(t *testing.T) {
		svc := NewConversationService(new(MockConversationListRepo), new(MockMessageListRepo))

		_, err := svc.Messages(ctx, "", "user-1")
		require.Error(t, err)

		_, err = svc.Messages(ctx, "conv-1", "")
		require.Error(t, err)
	})
}

func TestConversationService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes an owned conversation", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		svc := NewConversationService(convRepo, new(MockMessageListRepo))

		convRepo.On("GetByIDAndUser", mock.Anything, "conv-1", "user-1").Return(testConversation("conv-1", "user-1"), nil)
		convRepo.On("Delete", mock.Anything, "conv-1").Return(nil)

		err := svc.Delete(ctx, "conv-1", "user-1")

		require.NoError(t, err)
		convRepo.AssertExpectations(t)
	})

	t.Run("does not delete what the user does not own", func(t *testing.T) {
		convRepo := new(MockConversationListRepo)
		svc := NewConversationService(convRepo, new(MockMessageListRepo))

		convRepo.On("GetByIDAndUser", mock.Anything, "conv-1", "user-2").Return(nil, domain.ErrConversationNotFound)

		err := svc.Delete(ctx, "conv-1", "user-2")

		require.ErrorIs(t, err, domain.ErrConversationNotFound)
		convRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
