package pages

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/jobhawk/scraper"
)

// Test helper: create a test page store
func createTestPageStore(t *testing.T) *PageStore {
	dbPath := filepath.Join(t.TempDir(), "pages.db")
	store, err := NewPageStore(dbPath)
	require.NoError(t, err, "should create page store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: a JSON API page
func apiPage() scraper.Page {
	return scraper.Page{
		Name:           "API",
		Company:        "Uber",
		CompanyID:      3,
		URL:            "https://uber.example/careers",
		APIURL:         "https://uber.example/api/jobs",
		Selector:       "data,results",
		ResponseType:   scraper.ResponseJSON,
		TitleKey:       "title",
		JobIDKey:       "id",
		JobURLKey:      "slug",
		JobURLPrefix:   "https://uber.example/jobs/",
		RequestMethod:  scraper.MethodPost,
		RequestPayload: map[string]any{"limit": float64(50)},
	}
}

// TestNewPageStore_ExistingDatabase verifies data survives reopening
func TestNewPageStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pages.db")

	store1, err := NewPageStore(dbPath)
	require.NoError(t, err)
	_, err = store1.CreatePage(apiPage())
	require.NoError(t, err)
	store1.Close()

	store2, err := NewPageStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	pages, err := store2.ListPages(PageFilter{})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

// TestCreatePage_RoundTrip verifies every field is stored
func TestCreatePage_RoundTrip(t *testing.T) {
	store := createTestPageStore(t)

	created, err := store.CreatePage(apiPage())
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := store.GetPage(created.ID)
	require.NoError(t, err)

	want := apiPage()
	want.ID = created.ID
	assert.Equal(t, want, *got)
}

// TestCreatePage_Defaults verifies an HTML page with no method
func TestCreatePage_Defaults(t *testing.T) {
	store := createTestPageStore(t)

	created, err := store.CreatePage(scraper.Page{
		Name:     "Careers",
		Company:  "Acme",
		URL:      "https://acme.example/careers",
		Selector: "h2.title",
	})
	require.NoError(t, err)

	got, err := store.GetPage(created.ID)
	require.NoError(t, err)
	assert.Equal(t, scraper.ResponseHTML, got.ResponseType)
	assert.Equal(t, scraper.MethodGet, got.RequestMethod)
	assert.Nil(t, got.RequestPayload)
	assert.Empty(t, got.APIURL)
}

// TestCreatePage_Invalid verifies invalid pages are rejected
func TestCreatePage_Invalid(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.CreatePage(scraper.Page{Name: "No URL", Selector: "h2"})
	assert.Error(t, err)

	pages, err := store.ListPages(PageFilter{})
	require.NoError(t, err)
	assert.Empty(t, pages)
}

// TestCreatePage_Duplicate verifies company and name are unique together
func TestCreatePage_Duplicate(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.CreatePage(apiPage())
	require.NoError(t, err)

	_, err = store.CreatePage(apiPage())
	assert.ErrorIs(t, err, ErrDuplicatePage)

	other := apiPage()
	other.Company = "Lyft"
	_, err = store.CreatePage(other)
	assert.NoError(t, err)
}

// TestGetPage_NotFound verifies missing pages
func TestGetPage_NotFound(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.GetPage(99)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

// TestListPages_Filter verifies company filtering and pagination
func TestListPages_Filter(t *testing.T) {
	store := createTestPageStore(t)

	for _, c := range []struct{ company, name string }{
		{"Acme", "One"}, {"Globex", "Two"}, {"Acme", "Three"}, {"Acme", "Four"},
	} {
		_, err := store.CreatePage(scraper.Page{
			Name:     c.name,
			Company:  c.company,
			URL:      "https://example.com/" + c.name,
			Selector: "h2",
		})
		require.NoError(t, err)
	}

	all, err := store.ListPages(PageFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "One", all[0].Name, "creation order")

	acme := "Acme"
	filtered, err := store.ListPages(PageFilter{Company: &acme})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)

	page, err := store.ListPages(PageFilter{Company: &acme, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Three", page[0].Name)

	rest, err := store.ListPages(PageFilter{Offset: 3})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Four", rest[0].Name)
}

// TestDeletePage verifies deletion
func TestDeletePage(t *testing.T) {
	store := createTestPageStore(t)

	created, err := store.CreatePage(apiPage())
	require.NoError(t, err)

	require.NoError(t, store.DeletePage(created.ID))
	assert.ErrorIs(t, store.DeletePage(created.ID), ErrPageNotFound)

	_, err = store.GetPage(created.ID)
	assert.ErrorIs(t, err, ErrPageNotFound)
}
