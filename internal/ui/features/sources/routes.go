package sources

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/blockether/sqlcockpit/internal/source"
)

// SetupRoutes registers the sources feature routes.
func SetupRoutes(
	router chi.Router,
	baseCtx context.Context,
	registry *source.Registry,
	orch Reconciler,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(baseCtx, registry, orch, logger)

	router.Route("/api/sources", func(r chi.Router) {
		r.Get("/", handlers.List)
		r.Get("/sse", handlers.StreamSSE)
		r.Post("/upload", handlers.Upload)
		r.Post("/url", handlers.AddURL)
		r.Post("/reload", handlers.Reload)
		r.Delete("/{id}", handlers.Remove)
	})

	return nil
}
