package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/storage/models"
	"github.com/designduel/grading-pipeline/pkg/logger"
	"github.com/designduel/grading-pipeline/pkg/utils"
)

// HTMLImporter pulls problem entries from a static HTML page (an internal
// wiki page or exported problem bank) and upserts them into the catalog.
// Each problem is expected to be a `.problem` element with `.title`,
// `.difficulty`, `.prompt`, and `.constraints` children; this matches the
// export format of the internal problem-authoring tool this pipeline
// replaces the manual seeding workflow for.
type HTMLImporter struct {
	catalog    *Catalog
	httpClient *http.Client
}

func NewHTMLImporter(catalog *Catalog) *HTMLImporter {
	return &HTMLImporter{
		catalog:    catalog,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ImportFromURL fetches url, parses every `.problem` entry, and upserts it
// into the catalog. Returns the number of problems imported.
func (im *HTMLImporter) ImportFromURL(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build import request: %w", err)
	}

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch problem catalog page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("problem catalog page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse problem catalog HTML: %w", err)
	}

	count := 0
	var firstErr error
	doc.Find(".problem").Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".title").First().Text())
		difficulty := strings.TrimSpace(sel.Find(".difficulty").First().Text())
		prompt := strings.TrimSpace(sel.Find(".prompt").First().Text())
		constraints := strings.TrimSpace(sel.Find(".constraints").First().Text())

		if title == "" || prompt == "" {
			return
		}

		problem := &models.Problem{
			ID:          utils.HashString(title),
			Title:       title,
			Difficulty:  difficulty,
			Prompt:      prompt,
			Constraints: constraints,
			CreatedAt:   time.Now(),
		}

		if err := im.catalog.Upsert(ctx, problem); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		count++
	})

	if firstErr != nil {
		return count, fmt.Errorf("failed to import one or more problems: %w", firstErr)
	}

	logger.Info("Problem catalog import complete", zap.Int("count", count), zap.String("url", url))
	return count, nil
}
