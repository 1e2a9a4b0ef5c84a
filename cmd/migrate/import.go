package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/designduel/grading-pipeline/internal/catalog"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/pkg/config"
)

var importURL string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import problems into the catalog from an exported HTML problem bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importURL == "" {
			return fmt.Errorf("--url is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		db, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		cat := catalog.NewCatalog(db)
		importer := catalog.NewHTMLImporter(cat)

		n, err := importer.ImportFromURL(context.Background(), importURL)
		if err != nil {
			return fmt.Errorf("importing problems: %w", err)
		}
		fmt.Printf("imported %d problems\n", n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importURL, "url", "", "URL of the exported HTML problem bank")
}
