package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/pkg/config"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		db, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		fmt.Println("schema up to date")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert every applied schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		db, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.MigrateDown(context.Background()); err != nil {
			return fmt.Errorf("reverting migrations: %w", err)
		}
		fmt.Println("schema reverted")
		return nil
	},
}
