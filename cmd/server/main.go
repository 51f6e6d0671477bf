// Package main implements the entry point for the Loom API server: a
// retrieval-augmented question answering service over user-submitted
// documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command instead of serving (up, down, status)")
	migrationsDir := flag.String("migrations-dir", "migrations",
		"path to the goose migration files")
	flag.Parse()

	if err := run(*migrateCmd, *migrationsDir); err != nil {
		// Config or startup failure: exit non-zero before serving anything.
		fmt.Fprintf(os.Stderr, "loom-api: %v\n", err)
		os.Exit(1)
	}
}

func run(migrateCmd, migrationsDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("llm_provider", cfg.LLM.Provider))

	if migrateCmd != "" {
		return runMigrations(cfg, log, migrateCmd, migrationsDir)
	}

	ctx := context.Background()

	pool, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log, pool)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
