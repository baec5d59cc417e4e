package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLister_Pages verifies the listing call and its decoding.
func TestLister_Pages(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Careers", "company": "Acme", "url": "https://acme.example", "selector": "h2"},
			{"id": 2, "name": "", "url": "https://broken.example", "selector": "h2"}
		]`))
	}))
	defer srv.Close()

	batch, err := NewLister(srv.URL+"/", "secret", time.Second, nil).Pages(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, ListPath, gotPath)
	assert.Equal(t, NoPushID, batch.PushID)
	require.Len(t, batch.Pages, 1)
	assert.Equal(t, "Careers", batch.Pages[0].Name)
}

// TestLister_HTTPError verifies a rejected listing is an error.
func TestLister_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewLister(srv.URL, "bad", time.Second, nil).Pages(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
