package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/blockether/sqlcockpit/internal/config"
	"github.com/blockether/sqlcockpit/internal/duck"
	"github.com/blockether/sqlcockpit/internal/loader"
	"github.com/blockether/sqlcockpit/internal/source"
)

// NewSourcesCommand creates the sources command group.
func NewSourcesCommand(getConfig ConfigGetter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and verify configured data sources",
	}
	cmd.AddCommand(newSourcesListCommand(getConfig))
	cmd.AddCommand(newSourcesCheckCommand(getConfig))
	cmd.AddCommand(newSourcesAddCommand())
	cmd.AddCommand(newSourcesRemoveCommand())
	return cmd
}

func newSourcesListCommand(getConfig ConfigGetter) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the data sources declared in the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Type", "Table", "Origin"})

			for _, sc := range cfg.Sources {
				origin := sc.URL
				if origin == "" {
					origin = sc.Path
				}
				t.AppendRow(table.Row{sc.Type, sc.TableName, origin})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d sources)\n", len(cfg.Sources))
			return nil
		},
	}
}

func newSourcesCheckCommand(getConfig ConfigGetter) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load all configured sources and report their status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := newLogger(cfg.Verbose)

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
			orch.Reconcile(cmd.Context())

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Status", "Error"})

			failed := 0
			for _, ds := range registry.Snapshot() {
				if ds.LoadingStatus == source.StatusFailed {
					failed++
				}
				t.AppendRow(table.Row{ds.TableName, string(ds.LoadingStatus), ds.LoadingError})
			}
			t.Render()

			if failed > 0 {
				return fmt.Errorf("%d source(s) failed to load", failed)
			}
			return nil
		},
	}
}

// BuildSources converts declared source configs into registry entries,
// reading file-backed sources from disk. Duplicate table names are rejected
// up front: the registry holds the same uniqueness rule for sources added
// later, and a masked duplicate would silently never load.
func BuildSources(cfg *config.Config) ([]source.DataSource, error) {
	out := make([]source.DataSource, 0, len(cfg.Sources))
	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case "file":
			data, err := os.ReadFile(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to read source file %s: %w", sc.Path, err)
			}
			out = append(out, source.NewFromFile(filepath.Base(sc.Path), data, sc.TableName))

		case "url":
			out = append(out, source.NewFromURL(sc.URL, sc.TableName))

		case "table", "view":
			typ := source.TypeTable
			if sc.Type == "view" {
				typ = source.TypeView
			}
			if sc.TableName == "" {
				return nil, fmt.Errorf("source of type %s requires a table_name", sc.Type)
			}
			out = append(out, source.DataSource{
				ID:        uuid.New().String(),
				Type:      typ,
				TableName: sc.TableName,
			})

		default:
			return nil, fmt.Errorf("unknown source type %q", sc.Type)
		}

		name := out[len(out)-1].TableName
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate table name %q in configured sources", name)
		}
		seen[name] = struct{}{}
	}
	return out, nil
}
