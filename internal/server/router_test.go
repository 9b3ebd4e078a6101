package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/api/handlers"
	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/service"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type MockAskService struct {
	mock.Mock
}

func (m *MockAskService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskOutput), args.Error(1)
}

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

func newTestRouter(validator *MockAuthValidator, ask *MockAskService, conv *MockConversationReader) http.Handler {
	return NewRouter(RouterConfig{
		AuthValidator:       validator,
		AskHandler:          handlers.NewAskHandler(ask),
		DocumentHandler:     handlers.NewDocumentHandler(nil, nil, nil),
		ConversationHandler: handlers.NewConversationHandler(conv),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockAuthValidator), new(MockAskService), new(MockConversationReader))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data["status"])
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(new(MockAuthValidator), new(MockAskService), new(MockConversationReader))

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/ask"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/conversations"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s without a token", target.method, target.path)
	}
}

func TestRouter_AskRoutesToHandler(t *testing.T) {
	validator := new(MockAuthValidator)
	ask := new(MockAskService)
	router := newTestRouter(validator, ask, new(MockConversationReader))

	validator.On("ValidateToken", mock.Anything, "sct_token").Return("user-1", nil)
	ask.On("Ask", mock.Anything, service.AskInput{UserID: "user-1", Question: "q"}).Return(&service.AskOutput{Answer: "a"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("Authorization", "Bearer sct_token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	ask.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(new(MockAuthValidator), new(MockAskService), new(MockConversationReader))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
