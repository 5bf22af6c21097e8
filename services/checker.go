package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fare-tracker/config"
	"fare-tracker/models"
	"fare-tracker/storage"
	"fare-tracker/utils"
)

// SearchError reports a query the fetcher could not complete, after retries.
type SearchError struct {
	Query models.Query
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Checker runs one full pass over a trip: search every combination, build
// and deduplicate observations, reconcile them with the history log and
// persist what is new.
type Checker struct {
	// Mirror, when set, receives every newly logged observation.
	Mirror storage.ObservationWriter
	// Notifier, when set, is told about runs that found something new.
	Notifier Notifier

	cfg       *config.Config
	fetcher   Fetcher
	extractor *Extractor
	builder   *Builder
	pacer     *utils.Pacer
	retry     *utils.RetryConfig
	metrics   *Metrics
	logger    *utils.Logger
}

// NewChecker creates a Checker. metrics may be nil.
func NewChecker(cfg *config.Config, fetcher Fetcher, metrics *Metrics, logger *utils.Logger) *Checker {
	return &Checker{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: NewExtractor(cfg.LayoutSettle, logger),
		builder:   NewBuilder(logger, metrics),
		pacer:     utils.NewPacer(cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// LogPath is where the history log of a trip lives.
func (c *Checker) LogPath(trip *config.Trip) string {
	return filepath.Join(c.cfg.WorkRoot, trip.Name, c.cfg.LogFile)
}

// Run performs one pass over trip. Every query is attempted; failed ones are
// skipped unless AbortOnFetchError is set. A report is returned whenever the
// history log was reconciled, even if the error is non-nil.
func (c *Checker) Run(ctx context.Context, trip *config.Trip) (*models.Report, error) {
	queries := trip.Queries()
	logPath := c.LogPath(trip)
	report := &models.Report{Trip: trip.Name, LogPath: logPath, StartedAt: time.Now()}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	c.logger.Info("[checker] %s: %d searches, log %s", trip.Name, len(queries), logPath)

	var candidates []models.Observation
	for i, q := range queries {
		report.Queries++
		c.logger.Info("[checker] (%d/%d) Searching %s", i+1, len(queries), q)

		rows, layout, err := c.search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("run %s: %w", trip.Name, ctx.Err())
			}
			report.QueriesFailed++
			c.metrics.IncQuery(trip.Name, "failed")
			if c.cfg.AbortOnFetchError {
				return nil, err
			}
			c.logger.Error("[checker] %v, skipping", err)
			continue
		}

		if len(rows) == 0 {
			report.QueriesEmpty++
			c.metrics.IncQuery(trip.Name, "empty")
			c.logger.Info("[checker] %s: no flights listed", q)
			continue
		}

		c.metrics.IncQuery(trip.Name, "ok")
		c.metrics.AddExtracted(layout, len(rows))
		built := c.builder.Build(q, rows)
		report.RowsDropped += len(rows) - len(built)
		candidates = append(candidates, built...)
		c.logger.Debug("[checker] %s: %d rows via %s layout", q, len(rows), layout)
	}

	batch := Deduplicate(candidates)
	report.BatchSize = len(batch)

	store := storage.NewCSVHistory(logPath)
	history, err := store.Load()
	fresh := errors.Is(err, storage.ErrHistoryNotFound)
	if err != nil && !fresh {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if fresh {
		c.logger.Info("[checker] No history at %s, starting a new log", logPath)
	}

	result := Diff(batch, history)
	report.NewEntries = result.NewEntries
	report.NewLows = result.NewLows
	report.LogSize = len(result.Log)

	if fresh || len(result.NewEntries) > 0 {
		if err := store.Save(result.Log); err != nil {
			return nil, fmt.Errorf("save history: %w", err)
		}
		c.logger.Info("[checker] Appended %d rows to %s (%d total)", len(result.NewEntries), logPath, len(result.Log))
	}

	if c.Mirror != nil && len(result.NewEntries) > 0 {
		if err := c.Mirror.Write(result.NewEntries); err != nil {
			c.logger.Error("[checker] Mirror write failed: %v", err)
		}
	}

	report.FinishedAt = time.Now()
	c.metrics.ObserveRun(trip.Name, len(result.NewEntries), len(result.NewLows), report.LogSize,
		report.FinishedAt.Sub(report.StartedAt), report.FinishedAt)

	if c.Notifier != nil && report.HasNews() {
		if err := c.Notifier.Notify(ctx, report); err != nil {
			c.logger.Error("[checker] Notification failed: %v", err)
		}
	}

	if report.Queries > 0 && report.QueriesFailed == report.Queries {
		return report, fmt.Errorf("run %s: all %d searches failed", trip.Name, report.Queries)
	}
	return report, nil
}

// search opens the results page for q and extracts its rows, retrying
// fetch failures with back-off.
func (c *Checker) search(ctx context.Context, q models.Query) ([]models.RawRow, string, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, "", &SearchError{Query: q, Err: err}
	}

	var rows []models.RawRow
	var layout string
	err := c.retry.Do(ctx, "search "+q.String(), func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()

		page, err := c.fetcher.Search(qctx, q)
		if err != nil {
			return err
		}
		defer page.Close()

		rows, layout, err = c.extractor.Extract(qctx, page)
		return err
	})
	if err != nil {
		return nil, "", &SearchError{Query: q, Err: err}
	}
	return rows, layout, nil
}
