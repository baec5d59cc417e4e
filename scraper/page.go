package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ResponseType is the declared shape of a page's response body. It selects
// which extractor handles the page; the body's Content-Type is never
// consulted.
type ResponseType uint8

const (
	ResponseHTML ResponseType = iota
	ResponseJSON
	ResponseFeed
)

// ErrInvalidResponseType is returned when a descriptor names a response
// type other than html, json or feed.
var ErrInvalidResponseType = errors.New("response_type must be html, json, or feed")

// ErrInvalidMethod is returned when a descriptor names a request method
// other than GET, POST or PUT.
var ErrInvalidMethod = errors.New("request_method must be GET, POST, or PUT")

func (rt ResponseType) String() string {
	switch rt {
	case ResponseHTML:
		return "html"
	case ResponseJSON:
		return "json"
	case ResponseFeed:
		return "feed"
	}
	return fmt.Sprintf("ResponseType(%d)", uint8(rt))
}

// ParseResponseType parses the wire name of a response type. An empty
// string means html.
func ParseResponseType(s string) (ResponseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return ResponseHTML, nil
	case "json":
		return ResponseJSON, nil
	case "feed", "rss", "atom":
		return ResponseFeed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidResponseType, s)
}

func (rt ResponseType) MarshalText() ([]byte, error) {
	return []byte(rt.String()), nil
}

func (rt *ResponseType) UnmarshalText(text []byte) error {
	parsed, err := ParseResponseType(string(text))
	if err != nil {
		return err
	}
	*rt = parsed
	return nil
}

// Method is the HTTP method used to fetch a page.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
	MethodPut  Method = "PUT"
)

// ParseMethod parses a request method case-insensitively. An empty string
// means GET.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case "", MethodGet:
		return MethodGet, nil
	case MethodPost:
		return MethodPost, nil
	case MethodPut:
		return MethodPut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// HasBody reports whether requests with this method carry the page's
// payload.
func (m Method) HasBody() bool {
	return m == MethodPost || m == MethodPut
}

// Page describes one careers page or jobs API to scrape. Pages arrive fresh
// with every batch and are never mutated.
//
// For html pages Selector is a CSS selector matching job titles. For json
// pages Selector is a comma-separated key path to the array of job records,
// and TitleKey, JobIDKey and JobURLKey are key paths inside each record.
// Fields that do not apply to the page's ResponseType are ignored.
type Page struct {
	ID             int          `json:"id"`
	Name           string       `json:"name" validate:"required"`
	Company        string       `json:"company"`
	CompanyID      int          `json:"company_id"`
	URL            string       `json:"url" validate:"required,url"`
	APIURL         string       `json:"api_url,omitempty" validate:"omitempty,url"`
	Selector       string       `json:"selector"`
	ResponseType   ResponseType `json:"response_type"`
	TitleKey       string       `json:"title_key,omitempty"`
	JobIDKey       string       `json:"job_id_key,omitempty"`
	JobURLKey      string       `json:"job_url_key,omitempty"`
	JobURLPrefix   string       `json:"job_url_prefix,omitempty"`
	RequestMethod  Method       `json:"request_method"`
	RequestPayload any          `json:"request_payload,omitempty"`
}

// pageWire mirrors the descriptor as the server serializes it, where the
// optional string columns may be null.
type pageWire struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	Company        string       `json:"company"`
	CompanyID      int          `json:"company_id"`
	URL            string       `json:"url"`
	APIURL         *string      `json:"api_url"`
	Selector       string       `json:"selector"`
	ResponseType   ResponseType `json:"response_type"`
	TitleKey       *string      `json:"title_key"`
	JobIDKey       *string      `json:"job_id_key"`
	JobURLKey      *string      `json:"job_url_key"`
	JobURLPrefix   *string      `json:"job_url_prefix"`
	RequestMethod  Method       `json:"request_method"`
	RequestPayload any          `json:"request_payload"`
}

func (p *Page) UnmarshalJSON(data []byte) error {
	w := pageWire{RequestMethod: MethodGet}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = Page{
		ID:             w.ID,
		Name:           w.Name,
		Company:        w.Company,
		CompanyID:      w.CompanyID,
		URL:            w.URL,
		APIURL:         deref(w.APIURL),
		Selector:       w.Selector,
		ResponseType:   w.ResponseType,
		TitleKey:       deref(w.TitleKey),
		JobIDKey:       deref(w.JobIDKey),
		JobURLKey:      deref(w.JobURLKey),
		JobURLPrefix:   deref(w.JobURLPrefix),
		RequestMethod:  w.RequestMethod,
		RequestPayload: w.RequestPayload,
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// EffectiveURL is the URL actually fetched: the API URL when one is set,
// otherwise the page URL.
func (p Page) EffectiveURL() string {
	if p.APIURL != "" {
		return p.APIURL
	}
	return p.URL
}

// Method returns the page's request method, treating an unset method as
// GET.
func (p Page) Method() Method {
	if p.RequestMethod == "" {
		return MethodGet
	}
	return p.RequestMethod
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the fields a stored page needs regardless of its
// response type, plus everything Scrapable checks.
func (p Page) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid page %q: %w", p.Name, err)
	}
	if err := p.Scrapable(); err != nil {
		return fmt.Errorf("invalid page %q: %w", p.Name, err)
	}
	return nil
}

// Scrapable reports whether the page carries enough to be fetched and
// extracted. Descriptive fields such as Name are not required.
func (p Page) Scrapable() error {
	if p.EffectiveURL() == "" {
		return errors.New("page has no url")
	}
	if p.ResponseType == ResponseHTML && strings.TrimSpace(p.Selector) == "" {
		return errors.New("html pages require a selector")
	}
	return nil
}
