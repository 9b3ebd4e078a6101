package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/safecampus/sentra/internal/domain"
)

const tokenPrefix = "sct_"

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type AccessTokenRepository interface {
	Create(ctx context.Context, token *domain.AccessToken) error
	GetByID(ctx context.Context, id string) (*domain.AccessToken, error)
	GetByHash(ctx context.Context, hash string) (*domain.AccessToken, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.AccessToken, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type AuthService struct {
	userRepo  UserRepository
	tokenRepo AccessTokenRepository
	uuidGen   UUIDGenerator
}

func NewAuthService(userRepo UserRepository, tokenRepo AccessTokenRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   uuidGen,
	}
}

func (s *AuthService) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user name is required")
	}

	user := &domain.User{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateUser(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) CreateToken(ctx context.Context, userID, name string) (string, error) {
	if userID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "token name is required")
	}

	_, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate access token", err)
	}

	hash := hashToken(token)

	record := &domain.AccessToken{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Name:      name,
		TokenHash: hash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAccessToken(record); err != nil {
		return "", err
	}

	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return "", err
	}

	return token, nil
}

// CreateTokenWithValue registers a caller-supplied token, used to bootstrap
// a known credential from configuration.
func (s *AuthService) CreateTokenWithValue(ctx context.Context, userID, name, token string) error {
	if userID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "token name is required")
	}
	if !IsValidToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid token format (expected sct_<64 hex chars>)")
	}

	_, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hash := hashToken(token)

	record := &domain.AccessToken{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Name:      name,
		TokenHash: hash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAccessToken(record); err != nil {
		return err
	}

	return s.tokenRepo.Create(ctx, record)
}

// ValidateToken resolves a bearer token to the owning user ID.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (string, error) {
	if !IsValidToken(token) {
		return "", domain.ErrInvalidToken
	}

	hash := hashToken(token)

	record, err := s.tokenRepo.GetByHash(ctx, hash)
	if err != nil {
		if err == domain.ErrTokenNotFound {
			return "", domain.ErrInvalidToken
		}
		return "", err
	}

	if record.IsRevoked() {
		return "", domain.ErrTokenRevoked
	}

	return record.UserID, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "token ID is required")
	}

	return s.tokenRepo.Revoke(ctx, tokenID)
}

func (s *AuthService) ListTokens(ctx context.Context, userID string) ([]*domain.AccessToken, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	return s.tokenRepo.GetByUserID(ctx, userID)
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidToken(token string) bool {
	if !strings.HasPrefix(token, tokenPrefix) {
		return false
	}
	hexPart := token[len(tokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
