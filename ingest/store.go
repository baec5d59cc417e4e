// Package ingest is a local stand-in for the hosted job server: it records
// pushes, merges reported postings and serves the page list.
package ingest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/jobhawk/report"
	"github.com/pevans/jobhawk/scraper"
)

// ErrPushNotFound is returned when a push ID is unknown.
var ErrPushNotFound = errors.New("push not found")

// Push is one batch run as recorded by the server.
type Push struct {
	ID         int             `json:"id"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Job is a stored posting. Postings are unique by title and company.
type Job struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	CompanyID int       `json:"company_id"`
	PageID    int       `json:"page_id"`
	PushID    int       `json:"push_id"`
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store persists pushes and jobs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the store at dbPath, creating the schema if needed.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pushes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		received_at TEXT NOT NULL,
		data TEXT
	);
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		company_id INTEGER NOT NULL DEFAULT 0,
		page_id INTEGER NOT NULL DEFAULT 0,
		push_id INTEGER NOT NULL,
		job_id TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		UNIQUE (title, company)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreatePush records a new push. data may be nil for a push that has not
// been reported yet.
func (s *Store) CreatePush(data json.RawMessage) (int, error) {
	result, err := s.db.Exec(
		"INSERT INTO pushes (received_at, data) VALUES (?, ?)",
		s.now().UTC().Format(time.RFC3339), nullableJSON(data),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert push: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get push id: %w", err)
	}
	return int(id), nil
}

// UpdatePush replaces the data of an existing push.
func (s *Store) UpdatePush(id int, data json.RawMessage) error {
	result, err := s.db.Exec(
		"UPDATE pushes SET data = ?, received_at = ? WHERE id = ?",
		nullableJSON(data), s.now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update push: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPushNotFound
	}
	return nil
}

// GetPush retrieves a push by ID.
func (s *Store) GetPush(id int) (*Push, error) {
	var p Push
	var receivedAt string
	var data sql.NullString

	err := s.db.QueryRow("SELECT id, received_at, data FROM pushes WHERE id = ?", id).
		Scan(&p.ID, &receivedAt, &data)
	if err == sql.ErrNoRows {
		return nil, ErrPushNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query push: %w", err)
	}

	p.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
	if data.Valid {
		p.Data = json.RawMessage(data.String)
	}
	return &p, nil
}

// MergeJobs stores the postings of a push. A posting whose title and
// company are already known only has its last_seen and push refreshed;
// the others are inserted and returned as new.
func (s *Store) MergeJobs(pushID int, entries []report.JobEntry) ([]Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	newJobs := []Job{}

	for _, e := range entries {
		lastSeen, err := time.Parse(scraper.TimestampLayout, e.LastSeen)
		if err != nil {
			lastSeen = now
		}

		var id int
		err = tx.QueryRow("SELECT id FROM jobs WHERE title = ? AND company = ?", e.Title, e.Company).Scan(&id)
		switch {
		case err == nil:
			if _, err := tx.Exec(
				"UPDATE jobs SET last_seen = ?, push_id = ? WHERE id = ?",
				scraper.FormatTimestamp(lastSeen), pushID, id,
			); err != nil {
				return nil, fmt.Errorf("failed to refresh job: %w", err)
			}
			continue
		case err != sql.ErrNoRows:
			return nil, fmt.Errorf("failed to look up job: %w", err)
		}

		job := Job{
			Title:     e.Title,
			Company:   e.Company,
			CompanyID: e.CompanyID,
			PageID:    e.Page.ID,
			PushID:    pushID,
			JobID:     e.JobID,
			URL:       e.URL,
			FirstSeen: now.Truncate(time.Second),
			LastSeen:  lastSeen,
		}
		result, err := tx.Exec(`
			INSERT INTO jobs (
				title, company, company_id, page_id, push_id, job_id, url,
				first_seen, last_seen
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.Title, job.Company, job.CompanyID, job.PageID, job.PushID,
			job.JobID, job.URL,
			scraper.FormatTimestamp(job.FirstSeen), scraper.FormatTimestamp(job.LastSeen),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert job: %w", err)
		}
		insertID, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get job id: %w", err)
		}
		job.ID = int(insertID)
		newJobs = append(newJobs, job)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit jobs: %w", err)
	}
	return newJobs, nil
}

// ListJobs returns stored jobs, most recently seen first. A limit of zero
// returns every job.
func (s *Store) ListJobs(limit int) ([]Job, error) {
	query := `
		SELECT id, title, company, company_id, page_id, push_id, job_id, url,
		       first_seen, last_seen
		FROM jobs
		ORDER BY last_seen DESC, id ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var j Job
		var firstSeen, lastSeen string
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Company, &j.CompanyID, &j.PageID, &j.PushID,
			&j.JobID, &j.URL, &firstSeen, &lastSeen,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.FirstSeen, _ = time.Parse(scraper.TimestampLayout, firstSeen)
		j.LastSeen, _ = time.Parse(scraper.TimestampLayout, lastSeen)
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}

func nullableJSON(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}
