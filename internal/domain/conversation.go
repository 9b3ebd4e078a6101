package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ConversationTitleMaxChars bounds titles derived from the first question.
	ConversationTitleMaxChars = 80
	// LastMessagePreviewChars bounds the stored preview of the latest answer.
	LastMessagePreviewChars = 120
)

// MessageRole identifies the author of a conversation turn.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// Conversation is a thread of question/answer turns owned by one user.
type Conversation struct {
	ID          string
	UserID      string
	Title       string
	LastMessage string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one immutable turn within a conversation.
type Message struct {
	ID             string
	ConversationID string
	UserID         string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}

// NewConversation creates a conversation titled after the first question.
func NewConversation(id, userID, firstQuestion string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     Truncate(firstQuestion, ConversationTitleMaxChars),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage creates a message for one conversation turn.
func NewMessage(id, conversationID, userID string, role MessageRole, content string, now time.Time) *Message {
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
}

// ValidateMessage checks structural invariants before persistence.
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}
	if m.ConversationID == "" {
		return fmt.Errorf("message ConversationID is required")
	}
	if m.UserID == "" {
		return fmt.Errorf("message UserID is required")
	}
	if m.Role != RoleUser && m.Role != RoleModel {
		return fmt.Errorf("message Role is invalid: %s", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("message Content is required")
	}
	return nil
}

// Truncate shortens s to at most max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}
