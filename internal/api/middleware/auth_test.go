package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/safecampus/sentra/internal/domain"
)

// MockAuthValidator is a mock implementation of AuthValidator
type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func TestTokenAuth(t *testing.T) {
	newRequest := func(authHeader string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		return req
	}

	t.Run("passes a valid token through and sets the user", func(t *testing.T) {
		validator := new(MockAuthValidator)
		validator.On("ValidateToken", mock.Anything, "sct_token").Return("user-1", nil)

		var gotUserID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID = GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		TokenAuth(validator)(next).ServeHTTP(rec, newRequest("Bearer sct_token"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
	})

	t.Run("rejects a missing authorization header", func(t *testing.T) {
		validator := new(MockAuthValidator)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		})

		rec := httptest.NewRecorder()
		TokenAuth(validator)(next).ServeHTTP(rec, newRequest(""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a non-bearer header", func(t *testing.T) {
		validator := new(MockAuthValidator)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		})

		rec := httptest.NewRecorder()
		TokenAuth(validator)(next).ServeHTTP(rec, newRequest("Basic dXNlcjpwYXNz"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		validator := new(MockAuthValidator)
		validator.On("ValidateToken", mock.Anything, "sct_bad").Return("", domain.ErrInvalidToken)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		})

		rec := httptest.NewRecorder()
		TokenAuth(validator)(next).ServeHTTP(rec, newRequest("Bearer sct_bad"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserID(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))

	ctx := context.WithValue(context.Background(), UserIDKey, "user-1")
	assert.Equal(t, "user-1", GetUserID(ctx))
}
