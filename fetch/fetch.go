// Package fetch performs the outbound HTTP requests for page scraping.
package fetch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/pevans/jobhawk/scraper"
)

// DefaultHeaders are sent with every page request. Several careers sites
// reject clients that do not look like a browser.
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/html, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
	"Sec-Fetch-Site":  "same-origin",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Dest":  "empty",
}

// DefaultHeaderOverrides holds the per-company quirks known to be needed.
var DefaultHeaderOverrides = map[string]map[string]string{
	// Uber's jobs API only checks that a CSRF token is present.
	"Uber": {"x-csrf-token": "x"},
}

// Options configures a Fetcher.
type Options struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
	// Headers replaces DefaultHeaders when non-nil.
	Headers map[string]string
	// HeaderOverrides maps a company name to headers added to, or
	// replacing, the defaults for that company's pages.
	HeaderOverrides map[string]map[string]string
	// RateLimit is the maximum number of requests per second to a single
	// host. Zero disables limiting.
	RateLimit float64
	// Retries is how many times a request that failed to connect is
	// retried.
	Retries int
	Logger  *slog.Logger
}

// Request is one page fetch.
type Request struct {
	URL     string
	Method  scraper.Method
	Company string
	Payload any
}

// Response is the raw result of a successful fetch.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher issues page requests and classifies failures as
// RecoverableError.
type Fetcher struct {
	client    *resty.Client
	headers   map[string]string
	overrides map[string]map[string]string
	logger    *slog.Logger

	rateLimit float64
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	headers := opts.Headers
	if headers == nil {
		headers = DefaultHeaders
	}
	overrides := opts.HeaderOverrides
	if overrides == nil {
		overrides = DefaultHeaderOverrides
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		client:    resty.New(),
		headers:   headers,
		overrides: overrides,
		logger:    logger.With("component", "fetch"),
		rateLimit: opts.RateLimit,
		limiters:  make(map[string]*rate.Limiter),
	}

	if opts.Timeout > 0 {
		f.client.SetTimeout(opts.Timeout)
	}
	if opts.Retries > 0 {
		f.client.SetRetryCount(opts.Retries)
		f.client.SetRetryWaitTime(500 * time.Millisecond)
	}

	f.client.OnBeforeRequest(f.throttle)
	f.client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		f.logger.Debug("fetched page",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"duration", res.Time(),
		)
		return nil
	})

	return f
}

// Fetch performs req. Any returned error is a *RecoverableError. The
// response body is fully read before Fetch returns, so no connection
// outlives the call.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = scraper.MethodGet
	}

	r := f.client.R().
		SetContext(ctx).
		SetHeaders(f.headersFor(req.Company))

	if method.HasBody() && req.Payload != nil {
		body, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, &RecoverableError{Reason: ReasonRequest, Method: string(method), URL: req.URL, Err: err}
		}
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	res, err := r.Execute(string(method), req.URL)
	if err != nil {
		return nil, &RecoverableError{Reason: ReasonConnection, Method: string(method), URL: req.URL, Err: err}
	}

	if !res.IsSuccess() {
		return nil, &RecoverableError{
			Reason: ReasonHTTPStatus,
			Code:   res.StatusCode(),
			Method: string(method),
			URL:    req.URL,
		}
	}

	return &Response{
		StatusCode:  res.StatusCode(),
		ContentType: res.Header().Get("Content-Type"),
		Body:        res.Body(),
	}, nil
}

// headersFor layers the company's overrides on top of the default headers.
func (f *Fetcher) headersFor(company string) map[string]string {
	headers := make(map[string]string, len(f.headers))
	for k, v := range f.headers {
		headers[k] = v
	}
	for k, v := range f.overrides[company] {
		headers[k] = v
	}
	return headers
}

// throttle waits for the target host's rate limiter before a request goes
// out.
func (f *Fetcher) throttle(_ *resty.Client, req *resty.Request) error {
	if f.rateLimit <= 0 {
		return nil
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return err
	}
	return f.limiterFor(u.Hostname()).Wait(req.Context())
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	host = strings.ToLower(host)

	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rateLimit), 1)
		f.limiters[host] = limiter
	}
	return limiter
}
