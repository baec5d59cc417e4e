package extract

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// HTML parses markup and returns one record per element matching selector,
// in document order. The element's text is the title; elements with no
// text are skipped. The URL comes from the nearest link, counting the
// element itself when it is an anchor, and is prefixed with urlPrefix when
// that is set.
func HTML(r io.Reader, selector, urlPrefix string) ([]Record, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var records []Record
	doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		title := trimTitle(s.Text())
		if title == "" {
			return
		}

		url := ""
		if href, ok := enclosingHref(s); ok {
			url = urlPrefix + href
		}

		records = append(records, Record{Title: title, URL: url})
	})

	return records, nil
}

// enclosingHref finds the href of the nearest link: the element itself when
// it is an anchor, otherwise its closest ancestor anchor. An href on any
// other element is ignored.
func enclosingHref(s *goquery.Selection) (string, bool) {
	return s.Closest("a[href]").Attr("href")
}
