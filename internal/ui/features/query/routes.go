package query

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the query feature routes.
func SetupRoutes(router chi.Router, db Database, logger *slog.Logger) error {
	handlers := NewHandlers(db, logger)

	router.Route("/api/query", func(r chi.Router) {
		r.Post("/execute", handlers.ExecuteSSE)
		r.Post("/cancel", handlers.Cancel)
		r.Post("/export", handlers.Export)
	})

	return nil
}
