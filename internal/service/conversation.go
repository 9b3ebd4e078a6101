package service

import (
	"context"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/pagination"
)

// ConversationListRepository is the read surface for conversation history.
type ConversationListRepository interface {
	GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Conversation, error)
	ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error)
	Delete(ctx context.Context, id string) error
}

// MessageListRepository reads the turns of a conversation.
type MessageListRepository interface {
	ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error)
}

type ConversationPageResult struct {
	Items      []*domain.Conversation
	NextCursor string
	HasMore    bool
}

// ConversationService exposes conversation history: listing threads and
// reading their messages. Threads are created lazily by the ask pipeline,
// never here.
type ConversationService struct {
	convRepo ConversationListRepository
	msgRepo  MessageListRepository
}

func NewConversationService(convRepo ConversationListRepository, msgRepo MessageListRepository) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
}

type ListConversationsInput struct {
	UserID string
	Cursor string
	Limit  int
}

type ListConversationsOutput struct {
	Items   []*domain.Conversation
	Cursor  string
	HasMore bool
}

// List returns the user's conversations, most recently active first.
func (s *ConversationService) List(ctx context.Context, input ListConversationsInput) (*ListConversationsOutput, error) {
	if input.UserID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	page, err := s.convRepo.ListByUserWithCursor(ctx, input.UserID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListConversationsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Messages returns a conversation's turns in chronological order. The
// conversation must belong to the requesting user.
func (s *ConversationService) Messages(ctx context.Context, conversationID, userID string) ([]*domain.Message, error) {
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "conversation ID is required")
	}
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	if _, err := s.convRepo.GetByIDAndUser(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return s.msgRepo.ListByConversation(ctx, conversationID)
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "conversation ID is required")
	}
	if userID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	if _, err := s.convRepo.GetByIDAndUser(ctx, conversationID, userID); err != nil {
		return err
	}

	return s.convRepo.Delete(ctx, conversationID)
}
