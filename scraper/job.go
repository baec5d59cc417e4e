package scraper

import "time"

// TimestampLayout is how batch timestamps are written on the wire.
const TimestampLayout = "2006-01-02 15:04:05"

// Job is a posting found on a page during one batch run.
type Job struct {
	Title     string
	Company   string
	CompanyID int
	Page      Page
	LastSeen  time.Time
	JobID     string
	URL       string
}

// ScrapeError records a page that could not be scraped. It is data, not a
// fault: one bad page never stops the rest of a batch.
type ScrapeError struct {
	Page  Page
	Error string
}

// BatchResult aggregates everything one batch run produced. Every job in
// Jobs carries Timestamp as its LastSeen.
type BatchResult struct {
	PushID    int
	Timestamp time.Time
	Jobs      []Job
	Errors    []ScrapeError
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
