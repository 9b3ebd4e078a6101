package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/service"
)

// MockConversationReader is a mock implementation of ConversationReader
type MockConversationReader struct {
	mock.Mock
}

func (m *MockConversationReader) List(ctx context.Context, input service.ListConversationsInput) (*service.ListConversationsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListConversationsOutput), args.Error(1)
}

func (m *MockConversationReader) Messages(ctx context.Context, conversationID, userID string) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockConversationReader) Delete(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func TestConversationHandler_List(t *testing.T) {
	t.Run("lists conversations with title and preview", func(t *testing.T) {
		svc := new(MockConversationReader)
		handler := NewConversationHandler(svc)

		now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		conv := domain.NewConversation("conv-1", "user-1", "Where are the fire exits?", now)
		conv.LastMessage = "Exits are marked on each floor."
		svc.On("List", mock.Anything, service.ListConversationsInput{UserID: "user-1", Limit: 20}).Return(&service.ListConversationsOutput{
			Items: []*domain.Conversation{conv},
		}, nil)

		rec := httptest.NewRecorder()
		handler.List(rec, authedRequest(http.MethodGet, "/conversations?limit=20", ""))

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data struct {
				Items []ConversationResponse `json:"items"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 1)
		assert.Equal(t, "Where are the fire exits?", body.Data.Items[0].Title)
		assert.Equal(t, "Exits are marked on each floor.", body.Data.Items[0].LastMessage)
	})

	t.Run("rejects an unauthenticated request", func(t *testing.T) {
		handler := NewConversationHandler(new(MockConversationReader))

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConversationHandler_Messages(t *testing.T) {
	t.Run("returns the thread's messages in order", func(t *testing.T) {
		svc := new(MockConversationReader)
		handler := NewConversationHandler(svc)

		now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		svc.On("Messages", mock.Anything, "conv-1", "user-1").Return([]*domain.Message{
			domain.NewMessage("msg-1", "conv-1", "user-1", domain.RoleUser, "question", now),
			domain.NewMessage("msg-2", "conv-1", "user-1", domain.RoleModel, "answer", now),
		}, nil)

		rec := httptest.NewRecorder()
		req := withURLParam(authedRequest(http.MethodGet, "/conversations/conv-1/messages", ""), "id", "conv-1")
		handler.Messages(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data struct {
				Items []MessageResponse `json:"items"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 2)
		assert.Equal(t, "user", body.Data.Items[0].Role)
		assert.Equal(t, "model", body.Data.Items[1].Role)
	})

	t.Run("maps someone else's conversation to 404", func(t *testing.T) {
		svc := new(MockConversationReader)
		handler := NewConversationHandler(svc)

		svc.On("Messages", mock.Anything, "conv-1", "user-1").Return(nil, domain.ErrConversationNotFound)

		rec := httptest.NewRecorder()
		req := withURLParam(authedRequest(http.MethodGet, "/conversations/conv-1/messages", ""), "id", "conv-1")
		handler.Messages(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConversationHandler_Delete(t *testing.T) {
	t.Run("deletes and returns no content", func(t *testing.T) {
		svc := new(MockConversationReader)
		handler := NewConversationHandler(svc)

		svc.On("Delete", mock.Anything, "conv-1", "user-1").Return(nil)

		rec := httptest.NewRecorder()
		req := withURLParam(authedRequest(http.MethodDelete, "/conversations/conv-1", ""), "id", "conv-1")
		handler.Delete(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
