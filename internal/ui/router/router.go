// Package router sets up HTTP routes for the cockpit server.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	intchat "github.com/blockether/sqlcockpit/internal/chat"
	"github.com/blockether/sqlcockpit/internal/source"
	chatFeature "github.com/blockether/sqlcockpit/internal/ui/features/chat"
	queryFeature "github.com/blockether/sqlcockpit/internal/ui/features/query"
	sourcesFeature "github.com/blockether/sqlcockpit/internal/ui/features/sources"
	"github.com/blockether/sqlcockpit/internal/ui/resources"
)

// Deps carries everything the feature routes need.
type Deps struct {
	BaseCtx      context.Context
	DB           queryFeature.Database
	Registry     *source.Registry
	Orchestrator sourcesFeature.Reconciler
	AgentClient  *intchat.Client
	ChatStore    *intchat.Store
	SessionStore *sessions.CookieStore
	DefaultUser  string
	Logger       *slog.Logger
	IsDev        bool
}

// SetupRoutes configures all routes for the cockpit server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Application shell and static assets
	router.Get("/", resources.ServeIndex)
	router.Handle("/static/*", resources.Handler())

	// Feature routes
	if err := queryFeature.SetupRoutes(router, deps.DB, deps.Logger); err != nil {
		return err
	}

	if err := sourcesFeature.SetupRoutes(router, deps.BaseCtx, deps.Registry, deps.Orchestrator, deps.Logger); err != nil {
		return err
	}

	if deps.AgentClient != nil && deps.ChatStore != nil {
		if err := chatFeature.SetupRoutes(router, deps.AgentClient, deps.ChatStore,
			deps.SessionStore, deps.DefaultUser, deps.Logger); err != nil {
			return err
		}
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
