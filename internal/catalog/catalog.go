// Package catalog is the read-only Problem Catalog: the fixed set of system
// design prompts a submission can reference. The pipeline never writes to
// it; problems are imported offline (see import.go).
package catalog

import (
	"context"
	"fmt"

	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
)

type Catalog struct {
	db *sqlite.Client
}

func NewCatalog(db *sqlite.Client) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Problem, error) {
	p, err := c.db.GetProblem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem catalog: %w", err)
	}
	return p, nil
}

func (c *Catalog) List(ctx context.Context) ([]*models.Problem, error) {
	problems, err := c.db.ListProblems(ctx)
	if err != nil {
		return nil, fmt.Errorf("problem catalog: %w", err)
	}
	return problems, nil
}

func (c *Catalog) Upsert(ctx context.Context, p *models.Problem) error {
	if err := c.db.UpsertProblem(ctx, p); err != nil {
		return fmt.Errorf("problem catalog: %w", err)
	}
	return nil
}
