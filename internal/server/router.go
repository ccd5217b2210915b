package server

import (
	"net/http"

	"github.com/cloo-solutions/agentchat/internal/api"
	"github.com/cloo-solutions/agentchat/internal/api/handlers"
	"github.com/cloo-solutions/agentchat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AgentHandler        *handlers.AgentHandler
	SourceHandler       *handlers.KnowledgeSourceHandler
	ChatHandler         *handlers.ChatHandler
	ConversationHandler *handlers.ConversationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/agents", func(r chi.Router) {
		r.Post("/", cfg.AgentHandler.Create)
		r.Get("/", cfg.AgentHandler.List)
		r.Get("/{id}", cfg.AgentHandler.Get)
		r.Put("/{id}", cfg.AgentHandler.Update)
		r.Delete("/{id}", cfg.AgentHandler.Delete)

		r.Post("/{agentID}/sources", cfg.SourceHandler.Create)
		r.Get("/{agentID}/sources", cfg.SourceHandler.ListByAgent)
		r.Post("/{agentID}/chat", cfg.ChatHandler.Chat)
		r.Get("/{agentID}/conversations", cfg.ConversationHandler.ListByAgent)
	})

	r.Route("/sources", func(r chi.Router) {
		r.Get("/{id}", cfg.SourceHandler.Get)
		r.Post("/{id}/ingest", cfg.SourceHandler.Ingest)
		r.Delete("/{id}", cfg.SourceHandler.Delete)
	})

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/{id}", cfg.ConversationHandler.Get)
		r.Get("/{id}/messages", cfg.ConversationHandler.ListMessages)
	})

	return r
}
