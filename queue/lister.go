package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pevans/jobhawk/report"
)

// ListPath is the server endpoint returning every tracked page.
const ListPath = "/api/pages/list"

// Lister fetches the page list directly from the server, bypassing the
// queue.
type Lister struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

// NewLister creates a Lister for the server at serverURL.
func NewLister(serverURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().SetHeader(report.APIKeyHeader, apiKey)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Lister{
		client: client,
		url:    strings.TrimRight(serverURL, "/") + ListPath,
		logger: logger.With("component", "queue"),
	}
}

// Pages returns the server's page list as a batch with no push ID.
func (l *Lister) Pages(ctx context.Context) (Batch, error) {
	res, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to list pages: %w", err)
	}
	if !res.IsSuccess() {
		return Batch{}, fmt.Errorf("failed to list pages: HTTP %d from %s", res.StatusCode(), l.url)
	}

	pages, err := DecodePages(res.Body(), l.logger)
	if err != nil {
		return Batch{}, err
	}
	return Batch{PushID: NoPushID, Pages: pages}, nil
}
