package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/domain"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccessTokenRepository is a mock implementation of AccessTokenRepository
type MockAccessTokenRepository struct {
	mock.Mock
}

func (m *MockAccessTokenRepository) Create(ctx context.Context, token *domain.AccessToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAccessTokenRepository) GetByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

func (m *MockAccessTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.AccessToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

func (m *MockAccessTokenRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AccessToken), args.Error(1)
}

func (m *MockAccessTokenRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccessTokenRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Name: "safety-office", CreatedAt: time.Now().UTC()}
}

func TestAuthService_CreateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a token with the expected format and stores only the hash", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(userRepo, tokenRepo, NewMockUUIDGenerator("token-id-1"))

		userRepo.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)

		var stored *domain.AccessToken
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *domain.AccessToken) bool {
			stored = tok
			return tok.ID == "token-id-1" && tok.UserID == "user-1" && tok.Name == "laptop"
		})).Return(nil)

		token, err := svc.CreateToken(ctx, "user-1", "laptop")

		require.NoError(t, err)
		assert.True(t, IsValidToken(token), "token should be sct_ + 64 hex chars")
		require.NotNil(t, stored)
		assert.NotContains(t, stored.TokenHash, token, "plaintext must never be stored")
		assert.Len(t, stored.TokenHash, 64, "hash should be hex-encoded SHA-256")
	})

	t.Run("fails for an unknown user", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(userRepo, tokenRepo, NewMockUUIDGenerator())

		userRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrUserNotFound)

		_, err := svc.CreateToken(ctx, "missing", "laptop")

		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("rejects missing user ID or name", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), new(MockAccessTokenRepository), NewMockUUIDGenerator())

		_, err := svc.CreateToken(ctx, "", "laptop")
		require.Error(t, err)

		_, err = svc.CreateToken(ctx, "user-1", "")
		require.Error(t, err)
	})
}

func TestAuthService_CreateTokenWithValue(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a caller-supplied token", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(userRepo, tokenRepo, NewMockUUIDGenerator("token-id-1"))

		token := "sct_" + strings.Repeat("ab", 32)
		userRepo.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *domain.AccessToken) bool {
			return tok.UserID == "user-1" && tok.Name == "bootstrap" && tok.TokenHash != token
		})).Return(nil)

		err := svc.CreateTokenWithValue(ctx, "user-1", "bootstrap", token)

		require.NoError(t, err)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("rejects a malformed token", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), new(MockAccessTokenRepository), NewMockUUIDGenerator())

		err := svc.CreateTokenWithValue(ctx, "user-1", "bootstrap", "not-a-token")

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a valid token to its user", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(userRepo, tokenRepo, NewMockUUIDGenerator("token-id-1"))

		userRepo.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)

		var storedHash string
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *domain.AccessToken) bool {
			storedHash = tok.TokenHash
			return true
		})).Return(nil)

		token, err := svc.CreateToken(ctx, "user-1", "laptop")
		require.NoError(t, err)

		tokenRepo.On("GetByHash", mock.Anything, storedHash).Return(&domain.AccessToken{
			ID:        "token-id-1",
			UserID:    "user-1",
			TokenHash: storedHash,
			CreatedAt: time.Now().UTC(),
		}, nil)

		userID, err := svc.ValidateToken(ctx, token)

		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("rejects a malformed token without hitting the store", func(t *testing.T) {
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(new(MockUserRepository), tokenRepo, NewMockUUIDGenerator())

		_, err := svc.ValidateToken(ctx, "garbage")

		require.ErrorIs(t, err, domain.ErrInvalidToken)
		tokenRepo.AssertNotCalled(t, "GetByHash", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(new(MockUserRepository), tokenRepo, NewMockUUIDGenerator())

		tokenRepo.On("GetByHash", mock.Anything, mock.Anything).Return(nil, domain.ErrTokenNotFound)

		_, err := svc.ValidateToken(ctx, "sct_"+strings.Repeat("00", 32))

		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("rejects a revoked token", func(t *testing.T) {
		tokenRepo := new(MockAccessTokenRepository)
		svc := NewAuthService(new(MockUserRepository), tokenRepo, NewMockUUIDGenerator())

		revokedAt := time.Now().UTC()
		tokenRepo.On("GetByHash", mock.Anything, mock.Anything).Return(&domain.AccessToken{
			ID:        "token-id-1",
			UserID:    "user-1",
			TokenHash: "hash",
			RevokedAt: &revokedAt,
		}, nil)

		_, err := svc.ValidateToken(ctx, "sct_"+strings.Repeat("00", 32))

		require.ErrorIs(t, err, domain.ErrTokenRevoked)
	})
}

func TestIsValidToken(t *testing.T) {
	assert.True(t, IsValidToken("sct_"+strings.Repeat("0f", 32)))
	assert.False(t, IsValidToken(""))
	assert.False(t, IsValidToken("sct_short"))
	assert.False(t, IsValidToken("tok_"+strings.Repeat("0f", 32)))
	assert.False(t, IsValidToken("sct_"+strings.Repeat("0g", 32)))
	assert.False(t, IsValidToken("sct_"+strings.Repeat("0f", 33)))
}
