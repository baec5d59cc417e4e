// Package spool keeps batch payloads that could not be delivered so they
// can be sent again later.
package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pevans/jobhawk/report"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("spool entry not found")

// Entry is one undelivered payload.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Endpoint  string         `json:"endpoint"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   report.Payload `json:"payload"`
}

// Spool stores entries as one JSON file each in a directory.
type Spool struct {
	dir string
	now func() time.Time
}

// ReadError describes a failure to read a single entry file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the entries that could be read, oldest first, and a
// ReadError for each file that could not.
type ListResult struct {
	Entries []Entry
	Errors  []ReadError
}

// New opens the spool in dir, creating it if needed.
func New(dir string) (*Spool, error) {
	// 0700: payloads can contain internal page URLs
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	return &Spool{dir: dir, now: time.Now}, nil
}

func (s *Spool) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// Save stores a payload that failed delivery to endpoint.
func (s *Spool) Save(endpoint string, p report.Payload) (uuid.UUID, error) {
	entry := Entry{
		ID:        uuid.New(),
		Endpoint:  endpoint,
		CreatedAt: s.now().UTC(),
		Payload:   p,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal spool entry: %w", err)
	}

	if err := os.WriteFile(s.path(entry.ID), data, 0o600); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write spool entry: %w", err)
	}

	return entry.ID, nil
}

// List returns every stored entry. Unreadable files are reported in the
// result rather than failing the whole listing.
func (s *Spool) List() (*ListResult, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}

	result := &ListResult{}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		entry, err := readEntry(filepath.Join(s.dir, f.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: f.Name(), Err: err})
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	sort.SliceStable(result.Entries, func(i, j int) bool {
		return result.Entries[i].CreatedAt.Before(result.Entries[j].CreatedAt)
	})

	return result, nil
}

// Get returns the entry with the given ID.
func (s *Spool) Get(id uuid.UUID) (*Entry, error) {
	entry, err := readEntry(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return entry, err
}

// Remove deletes the entry with the given ID.
func (s *Spool) Remove(id uuid.UUID) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove spool entry: %w", err)
	}
	return nil
}

func readEntry(filename string) (*Entry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spool entry: %w", err)
	}
	return &entry, nil
}
