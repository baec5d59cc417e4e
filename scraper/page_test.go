package scraper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPageUnmarshal_ServerPayload verifies decoding a descriptor as the
// server sends it, including null optional columns
func TestPageUnmarshal_ServerPayload(t *testing.T) {
	data := `{
		"id": 4,
		"name": "Careers",
		"company": "Acme",
		"company_id": 2,
		"url": "https://acme.example/careers",
		"api_url": null,
		"selector": "data,jobs",
		"response_type": "json",
		"title_key": "name",
		"job_id_key": null,
		"job_url_key": "path",
		"job_url_prefix": "https://acme.example",
		"request_method": "post",
		"request_payload": {"page": 1}
	}`

	var page Page
	require.NoError(t, json.Unmarshal([]byte(data), &page))

	assert.Equal(t, 4, page.ID)
	assert.Equal(t, "Acme", page.Company)
	assert.Equal(t, 2, page.CompanyID)
	assert.Empty(t, page.APIURL, "null api_url should decode to empty")
	assert.Equal(t, ResponseJSON, page.ResponseType)
	assert.Empty(t, page.JobIDKey)
	assert.Equal(t, MethodPost, page.RequestMethod, "method should be case-insensitive")
	assert.Equal(t, map[string]any{"page": float64(1)}, page.RequestPayload)
}

// TestPageUnmarshal_Defaults verifies missing response type and method
func TestPageUnmarshal_Defaults(t *testing.T) {
	var page Page
	require.NoError(t, json.Unmarshal([]byte(`{"name": "p", "url": "https://x.example", "selector": "h2"}`), &page))

	assert.Equal(t, ResponseHTML, page.ResponseType)
	assert.Equal(t, MethodGet, page.RequestMethod)
	assert.Nil(t, page.RequestPayload)
}

// TestPageUnmarshal_InvalidEnums verifies unknown response types and
// methods are rejected
func TestPageUnmarshal_InvalidEnums(t *testing.T) {
	var page Page
	err := json.Unmarshal([]byte(`{"name": "p", "response_type": "xml"}`), &page)
	assert.ErrorIs(t, err, ErrInvalidResponseType)

	err = json.Unmarshal([]byte(`{"name": "p", "request_method": "DELETE"}`), &page)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

// TestPageMarshal_RoundTrip verifies enums are written by name
func TestPageMarshal_RoundTrip(t *testing.T) {
	page := Page{
		Name:          "Feed",
		URL:           "https://x.example/jobs.rss",
		ResponseType:  ResponseFeed,
		RequestMethod: MethodGet,
	}

	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"response_type":"feed"`)

	var decoded Page
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, page, decoded)
}

func TestEffectiveURL(t *testing.T) {
	page := Page{URL: "https://x.example/careers"}
	assert.Equal(t, "https://x.example/careers", page.EffectiveURL())

	page.APIURL = "https://api.x.example/jobs"
	assert.Equal(t, "https://api.x.example/jobs", page.EffectiveURL())
}

func TestMethodHasBody(t *testing.T) {
	assert.False(t, MethodGet.HasBody())
	assert.True(t, MethodPost.HasBody())
	assert.True(t, MethodPut.HasBody())
	assert.Equal(t, MethodGet, Page{}.Method(), "unset method should be GET")
}

// TestScrapable checks only what fetching and extraction need
func TestScrapable(t *testing.T) {
	assert.NoError(t, Page{URL: "https://x.example", Selector: "h2"}.Scrapable(), "name is not needed")
	assert.NoError(t, Page{APIURL: "https://api.x.example", ResponseType: ResponseJSON}.Scrapable())
	assert.NoError(t, Page{URL: "https://x.example", ResponseType: ResponseFeed}.Scrapable())
	assert.ErrorContains(t, Page{URL: "https://x.example", Selector: "  "}.Scrapable(), "selector")
	assert.ErrorContains(t, Page{Selector: "h2"}.Scrapable(), "no url")
}

// TestValidate checks required fields per response type
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		page    Page
		wantErr bool
	}{
		{
			name: "valid html page",
			page: Page{Name: "p", URL: "https://x.example", Selector: "h2"},
		},
		{
			name:    "html page without selector",
			page:    Page{Name: "p", URL: "https://x.example"},
			wantErr: true,
		},
		{
			name: "json page without selector uses whole document",
			page: Page{Name: "p", URL: "https://x.example", ResponseType: ResponseJSON, TitleKey: "title"},
		},
		{
			name:    "missing name",
			page:    Page{URL: "https://x.example", Selector: "h2"},
			wantErr: true,
		},
		{
			name:    "relative url",
			page:    Page{Name: "p", URL: "/careers", Selector: "h2"},
			wantErr: true,
		},
		{
			name:    "invalid api url",
			page:    Page{Name: "p", URL: "https://x.example", APIURL: "not a url", ResponseType: ResponseJSON},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
