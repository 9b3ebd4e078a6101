package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderTimeout     = "PROVIDER_TIMEOUT"
	ErrCodeDimensionMismatch   = "DIMENSION_MISMATCH"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrQuestionTooLong      = NewDomainError(ErrCodeValidation, "question exceeds maximum length")
	ErrInvalidCategory      = NewDomainError(ErrCodeValidation, "invalid document category")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrUserNotFound         = NewDomainError(ErrCodeNotFound, "user not found")
	ErrTokenNotFound        = NewDomainError(ErrCodeNotFound, "access token not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authorization errors
var (
	ErrTokenRevoked = NewDomainError(ErrCodeUnauthorized, "access token has been revoked")
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid access token")
)

// Provider errors. Both are recoverable: the pipeline degrades instead of
// surfacing them to the caller.
var (
	ErrProviderUnavailable = NewDomainError(ErrCodeProviderUnavailable, "provider call failed")
	ErrProviderTimeout     = NewDomainError(ErrCodeProviderTimeout, "provider call timed out")
	ErrEmptyCompletion     = NewDomainError(ErrCodeProviderUnavailable, "provider returned an empty or blocked response")
)

// Data integrity errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding has wrong dimensionality")
)
