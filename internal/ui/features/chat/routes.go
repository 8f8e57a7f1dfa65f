package chat

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/blockether/sqlcockpit/internal/chat"
)

// SetupRoutes registers the chat feature routes.
func SetupRoutes(
	router chi.Router,
	client *chat.Client,
	store *chat.Store,
	sessionStore sessions.Store,
	defaultUser string,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(client, store, sessionStore, defaultUser, logger)

	router.Route("/api/chat", func(r chi.Router) {
		r.Get("/agents", handlers.Agents)
		r.Get("/teams", handlers.Teams)
		r.Get("/health", handlers.Health)
		r.Post("/agents/{agentID}/runs", handlers.CreateRun)
		r.Post("/agents/{agentID}/runs/{runID}/cancel", handlers.CancelRun)
		r.Get("/sessions", handlers.Sessions)
		r.Put("/sessions", handlers.SaveSessions)
		r.Get("/sessions/active", handlers.ActiveSession)
		r.Put("/sessions/active", handlers.SetActiveSession)
	})

	return nil
}
