package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safecampus/sentra/internal/api"
	"github.com/safecampus/sentra/internal/api/middleware"
	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/extract"
	"github.com/safecampus/sentra/internal/service"
)

// maxUploadBytes bounds one uploaded source file.
const maxUploadBytes = 32 << 20

type IngestService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

type DocumentManager interface {
	Get(ctx context.Context, id string) (*domain.Document, []*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	UpdateMetadata(ctx context.Context, input service.UpdateDocumentInput) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// SourceArchive stores uploaded source files.
type SourceArchive interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
}

type DocumentHandler struct {
	ingest  IngestService
	docs    DocumentManager
	archive SourceArchive // nil when object storage is not configured
}

func NewDocumentHandler(ingest IngestService, docs DocumentManager, archive SourceArchive) *DocumentHandler {
	return &DocumentHandler{
		ingest:  ingest,
		docs:    docs,
		archive: archive,
	}
}

type CreateDocumentRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Visible  *bool  `json:"visible"`
}

type UpdateDocumentRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Visible  *bool   `json:"visible"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	Category   string `json:"category"`
	Visible    bool   `json:"visible"`
	ChunkCount int    `json:"chunk_count"`
	SourceKey  string `json:"source_key,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type IngestResponse struct {
	Document     DocumentResponse `json:"document"`
	ChunkCount   int              `json:"chunk_count"`
	PendingEmbed []string         `json:"pending_embed,omitempty"`
}

func documentToResponse(d *domain.Document, withBody bool) DocumentResponse {
	resp := DocumentResponse{
		ID:         d.ID,
		Title:      d.Title,
		Category:   string(d.Category),
		Visible:    d.Visible,
		ChunkCount: d.ChunkCount,
		SourceKey:  d.SourceKey,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if withBody {
		resp.Body = d.Body
	}
	return resp
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Body == "" {
		api.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	// Detached so a dropped client doesn't abandon a half-embedded document.
	result, err := h.ingest.Ingest(context.WithoutCancel(r.Context()), service.IngestInput{
		OwnerID:  userID,
		Title:    req.Title,
		Body:     req.Body,
		Category: domain.DocumentCategory(req.Category),
		Visible:  visible,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{
		Document:     documentToResponse(result.Parent, false),
		ChunkCount:   result.Parent.ChunkCount,
		PendingEmbed: result.FailedEmbedIDs,
	})
}

// Upload accepts a multipart form with a source file, extracts its text,
// archives the original, and ingests the extracted content.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	tmp, err := os.CreateTemp("", "sentra-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}

	text, err := extract.File(tmp.Name(), header.Filename)
	if err != nil {
		api.Error(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to extract text: %v", err))
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	var sourceKey string
	if h.archive != nil {
		sourceKey = fmt.Sprintf("uploads/%s/%s", uuid.NewString(), header.Filename)
		contentType := header.Header.Get("Content-Type")
		if err := h.archive.Upload(r.Context(), sourceKey, contentType, data); err != nil {
			log.Printf("failed to archive upload %s: %v", header.Filename, err)
			sourceKey = ""
		}
	}

	result, err := h.ingest.Ingest(context.WithoutCancel(r.Context()), service.IngestInput{
		OwnerID:   userID,
		Title:     title,
		Body:      text,
		Category:  domain.DocumentCategory(r.FormValue("category")),
		Visible:   r.FormValue("visible") != "false",
		SourceKey: sourceKey,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{
		Document:     documentToResponse(result.Parent, false),
		ChunkCount:   result.Parent.ChunkCount,
		PendingEmbed: result.FailedEmbedIDs,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, _, err := h.docs.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, true))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	output, err := h.docs.List(r.Context(), service.ListDocumentsInput{
		OwnerID: userID,
		Cursor:  r.URL.Query().Get("cursor"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]DocumentResponse, 0, len(output.Items))
	for _, d := range output.Items {
		items = append(items, documentToResponse(d, false))
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"cursor":   output.Cursor,
		"has_more": output.HasMore,
	})
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateDocumentInput{
		DocumentID: id,
		Title:      req.Title,
		Visible:    req.Visible,
	}
	if req.Category != nil {
		category := domain.DocumentCategory(*req.Category)
		if !domain.IsValidCategory(category) {
			api.Error(w, http.StatusBadRequest, "invalid category")
			return
		}
		input.Category = &category
	}

	doc, err := h.docs.UpdateMetadata(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, false))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.docs.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
