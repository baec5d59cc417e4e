// Package queue delivers batches of pages to the scraper: decoding queue
// messages, consuming and publishing them on Redis, and listing pages from
// the server.
package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pevans/jobhawk/scraper"
)

// NoPushID marks a batch that was not started by a server push.
const NoPushID = -1

// Batch is a set of pages to scrape together, correlated by PushID.
type Batch struct {
	PushID int            `json:"push_id"`
	Pages  []scraper.Page `json:"data"`
}

type envelope struct {
	PushID *int              `json:"push_id"`
	Data   []json.RawMessage `json:"data"`
}

// Decode parses a queue message. A message that is not a valid envelope is
// rejected as a whole; individual page records that cannot be parsed or are
// invalid are skipped with a warning.
func Decode(body []byte, logger *slog.Logger) (Batch, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Batch{}, fmt.Errorf("invalid batch message: %w", err)
	}

	batch := Batch{PushID: NoPushID}
	if env.PushID != nil {
		batch.PushID = *env.PushID
	}
	batch.Pages = decodeRecords(env.Data, logger)
	return batch, nil
}

// DecodePages parses a JSON array of page records, as returned by the
// listing endpoint. Bad records are skipped like in Decode.
func DecodePages(body []byte, logger *slog.Logger) ([]scraper.Page, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid page list: %w", err)
	}
	return decodeRecords(raw, logger), nil
}

// Encode renders b as a queue message.
func Encode(b Batch) ([]byte, error) {
	pages := b.Pages
	if pages == nil {
		pages = []scraper.Page{}
	}
	return json.Marshal(Batch{PushID: b.PushID, Pages: pages})
}

func decodeRecords(raw []json.RawMessage, logger *slog.Logger) []scraper.Page {
	if logger == nil {
		logger = slog.Default()
	}

	pages := make([]scraper.Page, 0, len(raw))
	for i, rec := range raw {
		var page scraper.Page
		if err := json.Unmarshal(rec, &page); err != nil {
			logger.Warn("skipping unparseable page record", "index", i, "error", err)
			continue
		}
		pages = append(pages, page)
	}
	return pages
}
