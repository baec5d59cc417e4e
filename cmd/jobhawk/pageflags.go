package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/titanous/json5"

	"github.com/pevans/jobhawk/scraper"
)

// pageFlags are the descriptor fields settable from the command line.
type pageFlags struct {
	name         string
	company      string
	companyID    int
	url          string
	apiURL       string
	selector     string
	responseType string
	titleKey     string
	jobIDKey     string
	jobURLKey    string
	jobURLPrefix string
	method       string
	payload      string
}

func (f *pageFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.url, "url", "u", "", "The URL to scrape")
	fs.StringVar(&f.apiURL, "api-url", "", "Alternate URL to request instead of --url")
	fs.StringVarP(&f.responseType, "response-type", "r", "html", "Response type of the page: html, json or feed")
	fs.StringVarP(&f.selector, "selector", "s", "", "CSS selector for job titles (html), or comma-separated key path to the job list (json)")
	fs.StringVar(&f.titleKey, "title-key", "", "Comma-separated key path to the title in a JSON job")
	fs.StringVar(&f.jobIDKey, "job-id-key", "", "Comma-separated key path to the job ID in a JSON job")
	fs.StringVar(&f.jobURLKey, "job-url-key", "", "Comma-separated key path to the job URL in a JSON job")
	fs.StringVar(&f.jobURLPrefix, "job-url-prefix", "", "Prefix added to every extracted job URL")
	fs.StringVar(&f.method, "request-method", "GET", "HTTP method: GET, POST or PUT")
	fs.StringVar(&f.payload, "request-payload", "", "Request body for POST or PUT (JSON5)")
}

// page builds and validates the descriptor.
func (f *pageFlags) page() (scraper.Page, error) {
	rt, err := scraper.ParseResponseType(f.responseType)
	if err != nil {
		return scraper.Page{}, err
	}
	method, err := scraper.ParseMethod(f.method)
	if err != nil {
		return scraper.Page{}, err
	}

	var payload any
	if f.payload != "" {
		if err := json5.Unmarshal([]byte(f.payload), &payload); err != nil {
			return scraper.Page{}, fmt.Errorf("invalid --request-payload: %w", err)
		}
	}

	p := scraper.Page{
		Name:           f.name,
		Company:        f.company,
		CompanyID:      f.companyID,
		URL:            f.url,
		APIURL:         f.apiURL,
		Selector:       f.selector,
		ResponseType:   rt,
		TitleKey:       f.titleKey,
		JobIDKey:       f.jobIDKey,
		JobURLKey:      f.jobURLKey,
		JobURLPrefix:   f.jobURLPrefix,
		RequestMethod:  method,
		RequestPayload: payload,
	}
	if err := p.Validate(); err != nil {
		return scraper.Page{}, err
	}
	return p, nil
}

// decodePagesJSON5 parses one descriptor or an array of them written as
// JSON5.
func decodePagesJSON5(data []byte) ([]scraper.Page, error) {
	var v any
	if err := json5.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if _, ok := v.([]any); !ok {
		v = []any{v}
	}

	// Round trip through encoding/json so the descriptor decoding rules
	// apply unchanged.
	normalized, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var list []scraper.Page
	if err := json.Unmarshal(normalized, &list); err != nil {
		return nil, err
	}
	for i, p := range list {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
	}
	return list, nil
}
