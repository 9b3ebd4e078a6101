package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safecampus/sentra/internal/api"
	"github.com/safecampus/sentra/internal/api/handlers"
	"github.com/safecampus/sentra/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator       middleware.AuthValidator
	AskHandler          *handlers.AskHandler
	DocumentHandler     *handlers.DocumentHandler
	ConversationHandler *handlers.ConversationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads go through multipart with their own cap; JSON bodies stay small.
	const maxBodyBytes int64 = 48 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.AuthValidator))

		r.Post("/ask", cfg.AskHandler.Ask)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Create)
			r.Post("/upload", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Patch("/{id}", cfg.DocumentHandler.Update)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.ConversationHandler.List)
			r.Get("/{id}/messages", cfg.ConversationHandler.Messages)
			r.Delete("/{id}", cfg.ConversationHandler.Delete)
		})
	})

	return r
}
