package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pevans/jobhawk/scraper"
)

// PageScraper scrapes one page. It must not fail the batch: any problem is
// returned as ScrapeErrors.
type PageScraper interface {
	ScrapePage(ctx context.Context, page scraper.Page, lastSeen time.Time) ([]scraper.Job, []scraper.ScrapeError)
}

// RunnerConfig holds configuration for a Runner.
type RunnerConfig struct {
	// Maximum number of pages scraped in parallel
	Concurrency int
	// Clock for the batch timestamp; time.Now when nil
	Now func() time.Time
}

// DefaultRunnerConfig scrapes one page at a time.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{Concurrency: 1}
}

// Runner scrapes a batch of pages and collects their results.
type Runner struct {
	scraper PageScraper
	config  *RunnerConfig
	logger  *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(s PageScraper, config *RunnerConfig, logger *slog.Logger) *Runner {
	if config == nil {
		config = DefaultRunnerConfig()
	}
	cfg := *config
	config = &cfg
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		scraper: s,
		config:  config,
		logger:  logger.With("component", "runner"),
	}
}

type pageResult struct {
	jobs   []scraper.Job
	errors []scraper.ScrapeError
}

// Run scrapes every page and returns the combined result. The batch
// timestamp is taken once before any page is fetched and used as every
// job's LastSeen. Results keep the order of pages. A failing page only
// contributes its ScrapeError; it never affects the others.
func (r *Runner) Run(ctx context.Context, pushID int, pages []scraper.Page) *scraper.BatchResult {
	// Wire timestamps have second precision.
	ts := r.config.Now().Truncate(time.Second)
	runID := uuid.New()
	logger := r.logger.With("run_id", runID, "push_id", pushID)
	logger.Info("starting batch", "pages", len(pages), "concurrency", r.config.Concurrency)

	results := make([]pageResult, len(pages))
	sem := make(chan struct{}, r.config.Concurrency)
	var wg sync.WaitGroup

	for i, page := range pages {
		if !r.acquire(ctx, sem) {
			results[i].errors = []scraper.ScrapeError{{
				Page:  page,
				Error: fmt.Sprintf("batch cancelled: %v", ctx.Err()),
			}}
			continue
		}

		wg.Add(1)
		go func(i int, page scraper.Page) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.scrape(ctx, page, ts)
		}(i, page)
	}
	wg.Wait()

	batch := &scraper.BatchResult{
		PushID:    pushID,
		Timestamp: ts,
		Jobs:      []scraper.Job{},
		Errors:    []scraper.ScrapeError{},
	}
	for _, res := range results {
		batch.Jobs = append(batch.Jobs, res.jobs...)
		batch.Errors = append(batch.Errors, res.errors...)
	}

	logger.Info("finished batch", "jobs", len(batch.Jobs), "errors", len(batch.Errors))
	return batch
}

// acquire takes a semaphore slot, giving up once ctx is done.
func (r *Runner) acquire(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case sem <- struct{}{}:
		return true
	}
}

// scrape runs one page, converting a panic into a ScrapeError.
func (r *Runner) scrape(ctx context.Context, page scraper.Page, ts time.Time) (res pageResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic while scraping page", "page", page.Name, "panic", p)
			res = pageResult{errors: []scraper.ScrapeError{{
				Page:  page,
				Error: fmt.Sprintf("internal error: %v", p),
			}}}
		}
	}()

	jobs, errs := r.scraper.ScrapePage(ctx, page, ts)
	return pageResult{jobs: jobs, errors: errs}
}
