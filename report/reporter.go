package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pevans/jobhawk/scraper"
)

// APIKeyHeader carries the ingestion API key.
const APIKeyHeader = "X-API-Key"

// DeliveryError means a payload did not reach the ingestion endpoint. The
// caller decides whether to retry.
type DeliveryError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery to %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("delivery to %s failed: HTTP %d", e.Endpoint, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Reporter posts payloads to a single ingestion endpoint.
type Reporter struct {
	client   *resty.Client
	endpoint string
	logger   *slog.Logger
}

// NewReporter creates a Reporter posting to endpoint with apiKey.
func NewReporter(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetHeader(APIKeyHeader, apiKey).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Reporter{
		client:   client,
		endpoint: endpoint,
		logger:   logger.With("component", "report"),
	}
}

// Endpoint returns the URL payloads are posted to.
func (r *Reporter) Endpoint() string {
	return r.endpoint
}

// Report builds and delivers the payload for res.
func (r *Reporter) Report(ctx context.Context, res *scraper.BatchResult) error {
	return r.Send(ctx, Build(res))
}

// Send delivers an already built payload. Any failure is a
// *DeliveryError.
func (r *Reporter) Send(ctx context.Context, p Payload) error {
	res, err := r.client.R().
		SetContext(ctx).
		SetBody(p).
		Post(r.endpoint)
	if err != nil {
		return &DeliveryError{Endpoint: r.endpoint, Err: err}
	}
	if !res.IsSuccess() {
		return &DeliveryError{Endpoint: r.endpoint, StatusCode: res.StatusCode()}
	}

	r.logger.Info("delivered batch",
		"push_id", p.Data.PushID,
		"jobs", p.Data.NJobsFound,
		"errors", p.Data.NErrors,
		"status", res.StatusCode(),
	)
	return nil
}
