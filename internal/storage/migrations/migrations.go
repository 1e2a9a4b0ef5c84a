// Package migrations embeds the goose-managed SQLite schema for the grading
// pipeline's registry, event log, and result store.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up applies every pending migration against db. Safe to call on every
// process start: goose tracks the applied set in its own bookkeeping table.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// DownAll reverts every applied migration. Used by the storage client's
// MigrateDown, which backs gradectl's down command.
func DownAll(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.DownToContext(ctx, db, ".", 0); err != nil {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}

	return nil
}
