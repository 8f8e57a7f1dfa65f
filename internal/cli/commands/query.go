package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockether/sqlcockpit/internal/duck"
	"github.com/blockether/sqlcockpit/internal/loader"
	"github.com/blockether/sqlcockpit/internal/result"
	"github.com/blockether/sqlcockpit/internal/source"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(getConfig ConfigGetter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a one-shot SQL query against the cockpit database",
		Long: `Run a one-shot SQL query against the cockpit database.

The statement comes from the first argument, or from stdin when the
argument is "-" or omitted. Configured data sources are loaded before the
query runs so file- and url-backed tables are queryable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())
			logger := newLogger(cfg.Verbose)

			stmt, err := readStatement(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			conn, err := duck.Connect(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = conn.Close() }()

			if len(cfg.Sources) > 0 {
				initial, err := BuildSources(cfg)
				if err != nil {
					return err
				}
				loadSources(cmd.Context(), conn, initial, logger)
			}

			res, sqlErr := result.Run(cmd.Context(), conn, stmt)
			if sqlErr != nil {
				if sqlErr.Line > 0 {
					return fmt.Errorf("%s error at line %d: %s", sqlErr.Type, sqlErr.Line, sqlErr.Message)
				}
				return fmt.Errorf("%s error: %s", sqlErr.Type, sqlErr.Message)
			}

			return renderResult(cmd.OutOrStdout(), res, cfg.Output)
		},
	}
	return cmd
}

func readStatement(args []string, stdin io.Reader) (string, error) {
	var stmt string
	if len(args) == 1 && args[0] != "-" {
		stmt = args[0]
	} else {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		stmt = string(data)
	}

	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return "", fmt.Errorf("query cannot be empty")
	}
	return stmt, nil
}

// loadSources runs one reconcile pass so configured sources are queryable.
// Per-source failures are logged, not fatal: the query may not touch the
// failed table.
func loadSources(ctx context.Context, conn *duck.Connection, initial []source.DataSource, logger *slog.Logger) {
	registry := source.NewRegistry(initial)
	orch := loader.New(registry, loaderDB{conn}, logger)
	orch.Reconcile(ctx)

	for _, ds := range registry.Snapshot() {
		if ds.LoadingStatus == source.StatusFailed {
			logger.Warn("data source failed to load", "table", ds.TableName, "error", ds.LoadingError)
		}
	}
}
