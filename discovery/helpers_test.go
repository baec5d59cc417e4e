package discovery

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pevans/jobhawk/fetch"
)

// Test helper: decodes a request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Test helper: a real fetcher with a short timeout.
func newTestFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{Timeout: time.Second})
}
