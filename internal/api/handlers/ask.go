package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/safecampus/sentra/internal/api"
	"github.com/safecampus/sentra/internal/api/middleware"
	"github.com/safecampus/sentra/internal/service"
)

type AskService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
}

type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

type SourceResponse struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Relevance  *float32 `json:"relevance,omitempty"`
}

type AskResponse struct {
	Answer         string           `json:"answer"`
	Sources        []SourceResponse `json:"sources"`
	ConversationID string           `json:"conversation_id,omitempty"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := h.svc.Ask(r.Context(), service.AskInput{
		UserID:         userID,
		Question:       req.Question,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := make([]SourceResponse, 0, len(output.Sources))
	for _, s := range output.Sources {
		resp := SourceResponse{
			DocumentID: s.DocumentID,
			Title:      s.Title,
			Category:   string(s.Category),
		}
		if s.Scored {
			score := s.Score
			resp.Relevance = &score
		}
		sources = append(sources, resp)
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:         output.Answer,
		Sources:        sources,
		ConversationID: output.ConversationID,
	})
}
