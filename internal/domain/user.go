package domain

import (
	"fmt"
	"time"
)

// User is an account that owns conversations and may manage documents.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// AccessToken is a bearer credential for the HTTP API. Only the SHA-256
// hash of the token is stored.
type AccessToken struct {
	ID        string
	UserID    string
	Name      string
	TokenHash string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the token has been revoked.
func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// ValidateUser checks structural invariants before persistence.
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Name == "" {
		return fmt.Errorf("user Name is required")
	}
	return nil
}

// ValidateAccessToken checks structural invariants before persistence.
func ValidateAccessToken(t *AccessToken) error {
	if t == nil {
		return fmt.Errorf("access token cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("access token ID is required")
	}
	if t.UserID == "" {
		return fmt.Errorf("access token UserID is required")
	}
	if t.TokenHash == "" {
		return fmt.Errorf("access token TokenHash is required")
	}
	return nil
}
