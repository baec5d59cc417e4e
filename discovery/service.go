package discovery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/report"
	"github.com/pevans/jobhawk/scraper"
)

// Reporter delivers a batch result.
type Reporter interface {
	Report(ctx context.Context, res *scraper.BatchResult) error
}

// Spooler keeps payloads whose delivery failed.
type Spooler interface {
	Save(endpoint string, p report.Payload) (uuid.UUID, error)
}

// Service runs queued batches end to end: scrape, then report.
type Service struct {
	runner   *Runner
	reporter Reporter
	spool    Spooler
	logger   *slog.Logger
}

// NewService creates a Service. spool may be nil, in which case failed
// deliveries are only reported to the caller.
func NewService(runner *Runner, reporter Reporter, spool Spooler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:   runner,
		reporter: reporter,
		spool:    spool,
		logger:   logger.With("component", "service"),
	}
}

// Process scrapes every page in b and reports the result. Page failures
// are part of the result; only a failed delivery is returned as an error,
// after the payload has been spooled.
func (s *Service) Process(ctx context.Context, b queue.Batch) (*scraper.BatchResult, error) {
	res := s.runner.Run(ctx, b.PushID, b.Pages)

	err := s.reporter.Report(ctx, res)
	if err == nil {
		return res, nil
	}

	var de *report.DeliveryError
	if errors.As(err, &de) && s.spool != nil {
		id, spoolErr := s.spool.Save(de.Endpoint, report.Build(res))
		if spoolErr != nil {
			s.logger.Error("failed to spool undelivered batch", "push_id", b.PushID, "error", spoolErr)
		} else {
			s.logger.Warn("spooled undelivered batch", "push_id", b.PushID, "spool_id", id)
		}
	}

	return res, err
}

// Handle adapts Process to a queue.Handler.
func (s *Service) Handle(ctx context.Context, b queue.Batch) error {
	_, err := s.Process(ctx, b)
	return err
}
