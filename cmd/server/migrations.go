package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/loomkit/loom-api/internal/config"
)

// runMigrations executes the requested goose command against the
// configured database and exits without serving. Goose drives a
// database/sql connection, so the pgx stdlib adapter is used here
// instead of the pool the server runs on.
func runMigrations(cfg *config.Config, log *slog.Logger, command, dir string) error {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close migration connection", slog.String("error", err.Error()))
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	log.Info("running migrations",
		slog.String("command", command),
		slog.String("dir", dir))

	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q (want up, down or status)", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration completed", slog.String("command", command))
	return nil
}
