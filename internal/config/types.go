// Package config loads and validates SQL Cockpit configuration from a yaml
// file, environment variables, and CLI flags.
package config

// ServerConfig holds settings for the cockpit web server.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Watch         bool   `koanf:"watch"`
	SourcesDir    string `koanf:"sources_dir"`
}

// AgentConfig holds settings for the external agent API the assistant panel
// talks to.
type AgentConfig struct {
	BaseURL string `koanf:"base_url"`
	UserID  string `koanf:"user_id"`
}

// SourceConfig declares one data source in the config file. Exactly one of
// URL or Path should be set for importable sources; plain table/view
// sources set neither.
type SourceConfig struct {
	Type      string `koanf:"type"` // table, view, file, url
	TableName string `koanf:"table_name"`
	URL       string `koanf:"url"`
	Path      string `koanf:"path"`
}

// Config is the full cockpit configuration.
type Config struct {
	DatabasePath string         `koanf:"database"`   // DuckDB path, empty for in-memory
	StatePath    string         `koanf:"state_path"` // chat session store
	Verbose      bool           `koanf:"verbose"`
	Output       string         `koanf:"output"` // table, json, csv
	Server       ServerConfig   `koanf:"server"`
	Agent        AgentConfig    `koanf:"agent"`
	Sources      []SourceConfig `koanf:"sources"`
}

// Default configuration values.
const (
	DefaultPort      = 8484
	DefaultStatePath = ".sqlcockpit/state.db"
	DefaultUserID    = "default"
	DefaultOutput    = "table"
)

// Defaults returns the base configuration all other layers override.
func Defaults() map[string]any {
	return map[string]any{
		"database":       "",
		"state_path":     DefaultStatePath,
		"output":         DefaultOutput,
		"server.port":    DefaultPort,
		"server.watch":   false,
		"agent.base_url": "",
		"agent.user_id":  DefaultUserID,
	}
}
