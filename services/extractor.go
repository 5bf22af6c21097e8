package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fare-tracker/models"
	"fare-tracker/utils"
)

// Page is a results page opened for one query. HTML returns the current
// rendered document, so calling it again after a wait may see content that
// rendered late.
type Page interface {
	HTML(ctx context.Context) (string, error)
	Close()
}

// Fetcher opens the results page for a query. Implementations drive a
// browser; the pipeline only depends on the rendered HTML.
type Fetcher interface {
	Search(ctx context.Context, q models.Query) (Page, error)
}

// Extractor tries each layout in order against a page until one yields
// rows. Before every fallback probe it waits Settle for late rendering.
type Extractor struct {
	Layouts []Layout
	Settle  time.Duration
	logger  *utils.Logger
}

// NewExtractor creates an Extractor over the given layouts, or the default
// layouts when none are passed.
func NewExtractor(settle time.Duration, logger *utils.Logger, layouts ...Layout) *Extractor {
	if len(layouts) == 0 {
		layouts = DefaultLayouts()
	}
	return &Extractor{Layouts: layouts, Settle: settle, logger: logger}
}

// Extract returns the rows of the first layout that matches and that
// layout's name. No match is not an error: it returns nil rows.
func (e *Extractor) Extract(ctx context.Context, page Page) ([]models.RawRow, string, error) {
	for i, layout := range e.Layouts {
		if i > 0 {
			if err := utils.Sleep(ctx, e.Settle); err != nil {
				return nil, "", err
			}
		}

		html, err := page.HTML(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("snapshot page for %s layout: %w", layout.Name(), err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, "", fmt.Errorf("parse page: %w", err)
		}

		rows := layout.Extract(doc)
		if len(rows) > 0 {
			return rows, layout.Name(), nil
		}
		e.logger.Debug("[extract] No rows under %s layout", layout.Name())
	}
	return nil, "", nil
}
