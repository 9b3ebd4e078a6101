package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/safecampus/sentra/internal/api"
	"github.com/safecampus/sentra/internal/api/middleware"
	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/service"
)

type ConversationReader interface {
	List(ctx context.Context, input service.ListConversationsInput) (*service.ListConversationsOutput, error)
	Messages(ctx context.Context, conversationID, userID string) ([]*domain.Message, error)
	Delete(ctx context.Context, conversationID, userID string) error
}

type ConversationHandler struct {
	svc ConversationReader
}

func NewConversationHandler(svc ConversationReader) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type ConversationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"last_message"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	output, err := h.svc.List(r.Context(), service.ListConversationsInput{
		UserID: userID,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]ConversationResponse, 0, len(output.Items))
	for _, c := range output.Items {
		items = append(items, ConversationResponse{
			ID:          c.ID,
			Title:       c.Title,
			LastMessage: c.LastMessage,
			CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z"),
			UpdatedAt:   c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"cursor":   output.Cursor,
		"has_more": output.HasMore,
	})
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversationID := chi.URLParam(r, "id")

	messages, err := h.svc.Messages(r.Context(), conversationID, userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, MessageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"items": items,
	})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversationID := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), conversationID, userID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
