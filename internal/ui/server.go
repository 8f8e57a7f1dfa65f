// Package ui provides the cockpit web server: SQL editor backend, data
// source management, and the assistant panel proxy.
package ui

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/blockether/sqlcockpit/internal/chat"
	"github.com/blockether/sqlcockpit/internal/duck"
	"github.com/blockether/sqlcockpit/internal/loader"
	"github.com/blockether/sqlcockpit/internal/source"
	"github.com/blockether/sqlcockpit/internal/ui/router"
)

// Server is the main cockpit server.
type Server struct {
	db           *duck.Connection
	registry     *source.Registry
	orch         *loader.Orchestrator
	agentClient  *chat.Client
	chatStore    *chat.Store
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	sourcesDir   string
	defaultUser  string
	logger       *slog.Logger
}

// Config holds configuration for the cockpit server.
type Config struct {
	DB            *duck.Connection
	Registry      *source.Registry
	Orchestrator  *loader.Orchestrator
	AgentClient   *chat.Client
	ChatStore     *chat.Store
	Port          int
	Watch         bool
	SourcesDir    string
	SessionSecret string
	DefaultUser   string
	Logger        *slog.Logger
}

// NewServer creates a new cockpit server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		db:           cfg.DB,
		registry:     cfg.Registry,
		orch:         cfg.Orchestrator,
		agentClient:  cfg.AgentClient,
		chatStore:    cfg.ChatStore,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		sourcesDir:   cfg.SourcesDir,
		defaultUser:  cfg.DefaultUser,
		logger:       cfg.Logger,
	}
}

// Serve starts the cockpit server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting cockpit server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		BaseCtx:      egctx,
		DB:           s.db,
		Registry:     s.registry,
		Orchestrator: s.orch,
		AgentClient:  s.agentClient,
		ChatStore:    s.chatStore,
		SessionStore: s.sessionStore,
		DefaultUser:  s.defaultUser,
		Logger:       s.logger,
		IsDev:        s.IsDev(),
	})
	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Initial load of configured sources
	eg.Go(func() error {
		s.orch.Reconcile(egctx)
		return nil
	})

	// Start drop-directory watcher if enabled
	if s.watch && s.sourcesDir != "" {
		eg.Go(func() error {
			return s.watchSources(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down cockpit server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	// Can be determined by build tag or config
	return true // For now, always dev mode
}

// watchSources watches the drop directory and registers new data files as
// sources as they appear.
func (s *Server) watchSources(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.sourcesDir); err != nil {
		s.logger.Error("failed to watch sources directory", "dir", s.sourcesDir, "error", err)
		// Don't fail - continue without watching
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			ext := filepath.Ext(event.Name)
			if ext != ".csv" && ext != ".parquet" && ext != ".json" && ext != ".jsonl" {
				continue
			}

			name := event.Name
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.registerDroppedFile(ctx, name)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// registerDroppedFile adds a file from the drop directory as a source and
// triggers a load. Duplicates are logged, not fatal: re-saving a file that
// is already registered is routine.
func (s *Server) registerDroppedFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read dropped file", "file", path, "error", err)
		return
	}

	ds := source.NewFromFile(filepath.Base(path), data, "")
	if err := s.registry.Add(ds); err != nil {
		s.logger.Debug("dropped file already registered", "file", path, "error", err)
		return
	}

	s.logger.Info("dropped file registered", "file", path, "table", ds.TableName)
	go s.orch.Reconcile(ctx)
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
