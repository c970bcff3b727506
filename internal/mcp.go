package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/ansuz/internal/catalog"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/storage"
)

// RunMCP starts the stdio MCP server over the configured mode library.
// Logs go to stderr so they never corrupt the stdio transport.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Modes.Path, 0o755); err != nil {
		return fmt.Errorf("create modes dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Modes.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	if err := catalog.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("modes_path", cfg.Modes.Path))
	return mcpserver.New(store, db).ServeStdio()
}
