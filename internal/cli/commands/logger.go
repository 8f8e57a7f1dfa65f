// Package commands implements the sqlcockpit subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/blockether/sqlcockpit/internal/config"
)

// ConfigGetter resolves the loaded configuration from a command context.
type ConfigGetter func(ctx context.Context) *config.Config

// newLogger builds the process logger. Verbose mode drops the level to debug.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
