// Package extract turns fetched page bodies into job records. There is one
// extractor per response shape: HTML with a CSS selector, JSON with key
// paths, and RSS/Atom feeds.
package extract

import "strings"

// Record is one job posting pulled out of a page, before it is tied to the
// page and batch it came from.
type Record struct {
	Title string
	JobID string
	URL   string
}

// trimTitle trims surrounding whitespace. Inner whitespace is kept as
// published, since the title is part of the posting's identity downstream.
func trimTitle(s string) string {
	return strings.TrimSpace(s)
}
