package ingest

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/jobhawk/report"
)

// Test helper: create a test store with a fixed clock
func createTestStore(t *testing.T) *Store {
	store, err := NewStore(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err, "should create store")
	store.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) }
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: a reported posting
func entry(title, company, lastSeen string) report.JobEntry {
	return report.JobEntry{
		Title:     title,
		Company:   company,
		CompanyID: 1,
		Page:      report.PageRef{ID: 5, Name: "Careers", Company: company},
		LastSeen:  lastSeen,
		JobID:     "id-" + title,
		URL:       "/jobs/" + title,
	}
}

// TestPushLifecycle verifies creating, updating and reading pushes
func TestPushLifecycle(t *testing.T) {
	store := createTestStore(t)

	id, err := store.CreatePush(nil)
	require.NoError(t, err)

	push, err := store.GetPush(id)
	require.NoError(t, err)
	assert.Nil(t, push.Data)

	require.NoError(t, store.UpdatePush(id, json.RawMessage(`{"push_id": 1}`)))
	push, err = store.GetPush(id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"push_id": 1}`, string(push.Data))

	assert.ErrorIs(t, store.UpdatePush(id+1, nil), ErrPushNotFound)
	_, err = store.GetPush(id + 1)
	assert.ErrorIs(t, err, ErrPushNotFound)
}

// TestMergeJobs_Dedup verifies postings are unique by title and company
func TestMergeJobs_Dedup(t *testing.T) {
	store := createTestStore(t)

	first, err := store.MergeJobs(1, []report.JobEntry{
		entry("Engineer", "Acme", "2024-01-01 10:00:00"),
		entry("Designer", "Acme", "2024-01-01 10:00:00"),
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Engineer", first[0].Title)
	assert.Positive(t, first[0].ID)

	second, err := store.MergeJobs(2, []report.JobEntry{
		entry("Engineer", "Acme", "2024-01-02 10:00:00"),
		entry("Engineer", "Globex", "2024-01-02 10:00:00"),
	})
	require.NoError(t, err)
	require.Len(t, second, 1, "only the Globex posting is new")
	assert.Equal(t, "Globex", second[0].Company)

	jobs, err := store.ListJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	byKey := map[string]Job{}
	for _, j := range jobs {
		byKey[j.Title+"@"+j.Company] = j
	}
	refreshed := byKey["Engineer@Acme"]
	assert.Equal(t, 2, refreshed.PushID)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), refreshed.LastSeen)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), refreshed.FirstSeen)
	assert.Equal(t, 1, byKey["Designer@Acme"].PushID)
}

// TestMergeJobs_DuplicateWithinPush verifies a posting reported twice in
// one push is stored once
func TestMergeJobs_DuplicateWithinPush(t *testing.T) {
	store := createTestStore(t)

	newJobs, err := store.MergeJobs(1, []report.JobEntry{
		entry("Engineer", "Acme", "2024-01-01 10:00:00"),
		entry("Engineer", "Acme", "2024-01-01 10:00:00"),
	})
	require.NoError(t, err)
	assert.Len(t, newJobs, 1)

	jobs, err := store.ListJobs(0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

// TestListJobs_Limit verifies most recently seen first and limiting
func TestListJobs_Limit(t *testing.T) {
	store := createTestStore(t)

	_, err := store.MergeJobs(1, []report.JobEntry{
		entry("Old", "Acme", "2024-01-01 10:00:00"),
		entry("New", "Acme", "2024-01-05 10:00:00"),
	})
	require.NoError(t, err)

	jobs, err := store.ListJobs(1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "New", jobs[0].Title)
}
