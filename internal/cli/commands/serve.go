package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/blockether/sqlcockpit/internal/chat"
	"github.com/blockether/sqlcockpit/internal/duck"
	"github.com/blockether/sqlcockpit/internal/loader"
	"github.com/blockether/sqlcockpit/internal/source"
	"github.com/blockether/sqlcockpit/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand(getConfig ConfigGetter) *cobra.Command {
	var (
		port       int
		watch      bool
		sourcesDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cockpit web server",
		Long: `Start the cockpit web server.

Configured data sources are loaded into the database on startup; the
editor, source manager, and assistant panel are served on the configured
port until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := newLogger(cfg.Verbose)

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watch
			}
			if cmd.Flags().Changed("sources-dir") {
				cfg.Server.SourcesDir = sourcesDir
			}

			conn, err := duck.Connect(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = conn.Close() }()

			initial, err := BuildSources(cfg)
			if err != nil {
				return err
			}
			registry := source.NewRegistry(initial)
			orch := loader.New(registry, loaderDB{conn}, logger)

			stateDir := filepath.Dir(cfg.StatePath)
			if stateDir != "." && stateDir != "" {
				if err := os.MkdirAll(stateDir, 0750); err != nil {
					return fmt.Errorf("failed to create state directory: %w", err)
				}
			}
			store, err := chat.OpenStore(cfg.StatePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(); err != nil {
				return err
			}

			var agentClient *chat.Client
			if cfg.Agent.BaseURL != "" {
				agentClient = chat.NewClient(cfg.Agent.BaseURL, nil, logger)
				if err := agentClient.Health(cmd.Context()); err != nil {
					logger.Warn("agent API unreachable, assistant panel degraded", "error", err)
				}
			}

			secret := cfg.Server.SessionSecret
			if secret == "" {
				// Ephemeral secret: cookies do not survive a restart.
				secret = uuid.New().String()
			}

			srv := ui.NewServer(ui.Config{
				DB:            conn,
				Registry:      registry,
				Orchestrator:  orch,
				AgentClient:   agentClient,
				ChatStore:     store,
				Port:          cfg.Server.Port,
				Watch:         cfg.Server.Watch,
				SourcesDir:    cfg.Server.SourcesDir,
				SessionSecret: secret,
				DefaultUser:   cfg.Agent.UserID,
				Logger:        logger,
			})

			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to serve on (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the sources directory for new data files")
	cmd.Flags().StringVar(&sourcesDir, "sources-dir", "", "Directory to watch for dropped data files")

	return cmd
}
