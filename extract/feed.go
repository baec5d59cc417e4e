package extract

import (
	"fmt"
	"io"

	"github.com/mmcdole/gofeed"
)

// Feed parses an RSS or Atom document and returns one record per item.
// The item's GUID is the job id and its link, prefixed with urlPrefix, is
// the URL. Items without a title are skipped.
func Feed(r io.Reader, urlPrefix string) ([]Record, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var records []Record
	for _, item := range feed.Items {
		title := trimTitle(item.Title)
		if title == "" {
			continue
		}

		url := ""
		if item.Link != "" {
			url = urlPrefix + item.Link
		}

		records = append(records, Record{
			Title: title,
			JobID: item.GUID,
			URL:   url,
		})
	}

	return records, nil
}
