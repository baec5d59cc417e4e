// Package discovery scrapes batches of pages: fetching each page,
// extracting its job postings and reporting the combined result.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pevans/jobhawk/extract"
	"github.com/pevans/jobhawk/fetch"
	"github.com/pevans/jobhawk/scraper"
)

// Fetcher retrieves a page body.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// Scraper turns a single page into job postings.
type Scraper struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewScraper creates a Scraper using fetcher for page requests.
func NewScraper(fetcher Fetcher, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		fetcher: fetcher,
		logger:  logger.With("component", "scraper"),
	}
}

// ScrapePage fetches page and extracts its postings, stamping each with
// lastSeen. It never fails: a page that cannot be fetched or parsed yields
// no jobs and exactly one ScrapeError.
func (s *Scraper) ScrapePage(ctx context.Context, page scraper.Page, lastSeen time.Time) ([]scraper.Job, []scraper.ScrapeError) {
	logger := s.logger.With("page", page.Name, "company", page.Company)

	if err := page.Scrapable(); err != nil {
		logger.Warn("skipping unscrapable page", "error", err)
		return nil, []scraper.ScrapeError{{Page: page, Error: fmt.Sprintf("invalid page: %v", err)}}
	}

	res, err := s.fetcher.Fetch(ctx, fetch.Request{
		URL:     page.EffectiveURL(),
		Method:  page.Method(),
		Company: page.Company,
		Payload: page.RequestPayload,
	})
	if err != nil {
		logger.Warn("failed to fetch page", "url", page.EffectiveURL(), "error", err)
		return nil, []scraper.ScrapeError{{Page: page, Error: err.Error()}}
	}

	records, err := extractRecords(page, res.Body)
	if err != nil {
		logger.Warn("failed to extract jobs", "url", page.EffectiveURL(), "error", err)
		return nil, []scraper.ScrapeError{{Page: page, Error: fmt.Sprintf("failed to extract jobs: %v", err)}}
	}

	jobs := make([]scraper.Job, 0, len(records))
	for _, r := range records {
		jobs = append(jobs, scraper.Job{
			Title:     r.Title,
			Company:   page.Company,
			CompanyID: page.CompanyID,
			Page:      page,
			LastSeen:  lastSeen,
			JobID:     r.JobID,
			URL:       r.URL,
		})
	}

	logger.Info("scraped page", "jobs", len(jobs))
	return jobs, nil
}

func extractRecords(page scraper.Page, body []byte) ([]extract.Record, error) {
	switch page.ResponseType {
	case scraper.ResponseHTML:
		return extract.HTML(bytes.NewReader(body), page.Selector, page.JobURLPrefix)
	case scraper.ResponseJSON:
		doc, err := extract.DecodeJSON(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return extract.JSON(doc, page.Selector, page.TitleKey, page.JobIDKey, page.JobURLKey, page.JobURLPrefix), nil
	case scraper.ResponseFeed:
		return extract.Feed(bytes.NewReader(body), page.JobURLPrefix)
	}
	return nil, fmt.Errorf("unsupported response type %q", page.ResponseType)
}
