package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/jobhawk/fetch"
	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/scraper"
)

// Test helper: a server with one HTML page per path; /broken returns 500.
func newJobsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/")
		fmt.Fprintf(w, `<a href="/%s/1"><h2>%s one</h2></a><a href="/%s/2"><h2>%s two</h2></a>`, name, name, name, name)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Test helper: an HTML page at path on srv.
func htmlPage(srv *httptest.Server, path string) scraper.Page {
	return scraper.Page{
		Name:         path,
		Company:      "Co " + path,
		URL:          srv.URL + "/" + path,
		Selector:     "h2",
		ResponseType: scraper.ResponseHTML,
	}
}

// Test helper: titles of jobs in order.
func titles(jobs []scraper.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Title)
	}
	return out
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
}

// TestRun_MiddlePageFails verifies a failing page in the middle of a batch
// leaves the other pages' jobs intact.
func TestRun_MiddlePageFails(t *testing.T) {
	srv := newJobsServer(t)
	pages := []scraper.Page{htmlPage(srv, "first"), htmlPage(srv, "broken"), htmlPage(srv, "third")}

	r := NewRunner(NewScraper(fetch.New(fetch.Options{Timeout: time.Second}), nil), &RunnerConfig{Now: fixedClock}, nil)
	res := r.Run(context.Background(), 21, pages)

	assert.Equal(t, 21, res.PushID)
	assert.Equal(t, []string{"first one", "first two", "third one", "third two"}, titles(res.Jobs))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "broken", res.Errors[0].Page.Name)
	assert.Contains(t, res.Errors[0].Error, "500")
}

// TestRun_Isolation verifies failures never remove other pages' jobs,
// whatever the concurrency.
func TestRun_Isolation(t *testing.T) {
	srv := newJobsServer(t)
	pages := []scraper.Page{
		htmlPage(srv, "broken"),
		htmlPage(srv, "a"),
		htmlPage(srv, "broken"),
		htmlPage(srv, "b"),
		htmlPage(srv, "c"),
	}

	for _, concurrency := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			r := NewRunner(NewScraper(fetch.New(fetch.Options{Timeout: time.Second}), nil),
				&RunnerConfig{Concurrency: concurrency, Now: fixedClock}, nil)
			res := r.Run(context.Background(), 1, pages)

			assert.Equal(t, []string{"a one", "a two", "b one", "b two", "c one", "c two"}, titles(res.Jobs))
			assert.Len(t, res.Errors, 2)
		})
	}
}

// TestRun_SharedTimestamp verifies every job carries the batch timestamp,
// truncated to whole seconds.
func TestRun_SharedTimestamp(t *testing.T) {
	srv := newJobsServer(t)
	calls := 0
	clock := func() time.Time {
		calls++
		return fixedClock().Add(time.Duration(calls) * time.Hour)
	}

	r := NewRunner(NewScraper(fetch.New(fetch.Options{}), nil), &RunnerConfig{Concurrency: 3, Now: clock}, nil)
	res := r.Run(context.Background(), 1, []scraper.Page{htmlPage(srv, "a"), htmlPage(srv, "b"), htmlPage(srv, "c")})

	want := time.Date(2024, 5, 6, 8, 8, 9, 0, time.UTC)
	assert.Equal(t, 1, calls, "clock read once per batch")
	assert.Equal(t, want, res.Timestamp)
	require.Len(t, res.Jobs, 6)
	for _, j := range res.Jobs {
		assert.Equal(t, want, j.LastSeen)
	}
}

// Test helper: a PageScraper that panics for one page and sleeps for the
// others, finishing out of order.
type unevenScraper struct {
	panicOn string
}

func (u unevenScraper) ScrapePage(_ context.Context, page scraper.Page, ts time.Time) ([]scraper.Job, []scraper.ScrapeError) {
	if page.Name == u.panicOn {
		panic("boom")
	}
	// Earlier pages take longer.
	time.Sleep(time.Duration(10-len(page.Name)) * 5 * time.Millisecond)
	return []scraper.Job{{Title: page.Name, LastSeen: ts}}, nil
}

// TestRun_PreservesOrder verifies jobs come out in page order even when
// pages finish out of order.
func TestRun_PreservesOrder(t *testing.T) {
	pages := []scraper.Page{{Name: "a"}, {Name: "bb"}, {Name: "ccc"}, {Name: "dddd"}}

	r := NewRunner(unevenScraper{}, &RunnerConfig{Concurrency: 4}, nil)
	res := r.Run(context.Background(), 1, pages)

	assert.Equal(t, []string{"a", "bb", "ccc", "dddd"}, titles(res.Jobs))
}

// TestRun_RecoversPanic verifies a panicking page becomes a ScrapeError.
func TestRun_RecoversPanic(t *testing.T) {
	pages := []scraper.Page{{Name: "a"}, {Name: "bb"}, {Name: "ccc"}}

	r := NewRunner(unevenScraper{panicOn: "bb"}, &RunnerConfig{Concurrency: 2}, nil)
	res := r.Run(context.Background(), 1, pages)

	assert.Equal(t, []string{"a", "ccc"}, titles(res.Jobs))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "bb", res.Errors[0].Page.Name)
	assert.Contains(t, res.Errors[0].Error, "boom")
}

// TestRun_Cancelled verifies pages not started before cancellation are
// reported as errors.
func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(unevenScraper{}, nil, nil)
	res := r.Run(ctx, 1, []scraper.Page{{Name: "a"}, {Name: "b"}})

	assert.Empty(t, res.Jobs)
	assert.Len(t, res.Errors, 2)
}

// TestRun_Empty verifies an empty batch still produces a result.
func TestRun_Empty(t *testing.T) {
	res := NewRunner(unevenScraper{}, nil, nil).Run(context.Background(), -1, nil)

	assert.Equal(t, -1, res.PushID)
	assert.NotNil(t, res.Jobs)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Jobs)
}

// TestNewRunner_KeepsCallerConfig verifies defaults are filled on a copy.
func TestNewRunner_KeepsCallerConfig(t *testing.T) {
	config := &RunnerConfig{}
	r := NewRunner(unevenScraper{}, config, nil)

	assert.Equal(t, 0, config.Concurrency)
	assert.Nil(t, config.Now)
	assert.Equal(t, 1, r.config.Concurrency)
	assert.NotNil(t, r.config.Now)
}

// TestRun_DecodedBatchKeepsEveryPage verifies records that parse are all
// accounted for in the result: a page without a name is still scraped and
// an html page without a selector becomes exactly one error.
func TestRun_DecodedBatchKeepsEveryPage(t *testing.T) {
	srv := newJobsServer(t)
	body := fmt.Sprintf(`{"push_id": 4, "data": [
		{"name": "", "company": "Acme", "url": "%s/anon", "selector": "h2", "response_type": "html"},
		{"name": "No selector", "company": "Acme", "url": "%s/other", "selector": "", "response_type": "html"}
	]}`, srv.URL, srv.URL)

	b, err := queue.Decode([]byte(body), nil)
	require.NoError(t, err)
	require.Len(t, b.Pages, 2)

	r := NewRunner(NewScraper(fetch.New(fetch.Options{Timeout: time.Second}), nil), &RunnerConfig{Now: fixedClock}, nil)
	res := r.Run(context.Background(), b.PushID, b.Pages)

	assert.Equal(t, []string{"anon one", "anon two"}, titles(res.Jobs))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "No selector", res.Errors[0].Page.Name)
	assert.Contains(t, res.Errors[0].Error, "html pages require a selector")
}
