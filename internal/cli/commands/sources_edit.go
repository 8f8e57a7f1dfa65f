package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blockether/sqlcockpit/internal/config"
)

func newSourcesAddCommand() *cobra.Command {
	var (
		cfgPath   string
		rawURL    string
		filePath  string
		tableName string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a data source to the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (rawURL == "") == (filePath == "") {
				return fmt.Errorf("exactly one of --url or --file is required")
			}

			entry := map[string]any{}
			if rawURL != "" {
				entry["type"] = "url"
				entry["url"] = rawURL
			} else {
				entry["type"] = "file"
				entry["path"] = filePath
			}
			if tableName != "" {
				entry["table_name"] = tableName
			}

			path := resolveConfigPath(cfgPath)
			doc, err := readConfigDoc(path)
			if err != nil {
				return err
			}

			sources, _ := doc["sources"].([]any)
			doc["sources"] = append(sources, entry)

			if err := writeConfigDoc(path, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added source to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "config file to edit (default: ./sqlcockpit.yaml)")
	cmd.Flags().StringVar(&rawURL, "url", "", "URL of the data file")
	cmd.Flags().StringVar(&filePath, "file", "", "Path to a local data file")
	cmd.Flags().StringVar(&tableName, "table", "", "Explicit table name (derived from the file name when omitted)")

	return cmd
}

func newSourcesRemoveCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "rm <table_name>",
		Short: "Remove a data source from the config file by table name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			path := resolveConfigPath(cfgPath)
			doc, err := readConfigDoc(path)
			if err != nil {
				return err
			}

			sources, _ := doc["sources"].([]any)
			kept := make([]any, 0, len(sources))
			removed := 0
			for _, s := range sources {
				entry, ok := s.(map[string]any)
				if ok && fmt.Sprint(entry["table_name"]) == target {
					removed++
					continue
				}
				kept = append(kept, s)
			}
			if removed == 0 {
				return fmt.Errorf("no source with table name %q in %s", target, path)
			}
			doc["sources"] = kept

			if err := writeConfigDoc(path, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d source(s) from %s\n", removed, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "config file to edit (default: ./sqlcockpit.yaml)")

	return cmd
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(config.ConfigFileNameAlt); err == nil {
		if _, err := os.Stat(config.ConfigFileName); err != nil {
			return config.ConfigFileNameAlt
		}
	}
	return config.ConfigFileName
}

// readConfigDoc loads the config file as a generic yaml document so edits
// round-trip fields this version does not know about. A missing file yields
// an empty document.
func readConfigDoc(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return doc, nil
}

func writeConfigDoc(path string, doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
