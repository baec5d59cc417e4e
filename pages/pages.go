// Package pages stores the tracked page descriptors in SQLite. It backs the
// page listing when running without the hosted server.
package pages

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/jobhawk/scraper"
)

// Custom errors for page operations
var (
	ErrPageNotFound  = errors.New("page not found")
	ErrDuplicatePage = errors.New("page with this company and name already exists")
)

// PageStore manages page descriptors using SQLite.
type PageStore struct {
	db *sql.DB
}

// PageFilter represents filtering options for listing pages.
type PageFilter struct {
	Company *string // Filter by company name
	Limit   int     // Pagination limit
	Offset  int     // Pagination offset
}

// NewPageStore opens the page store at dbPath, creating the schema if
// needed.
func NewPageStore(dbPath string) (*PageStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PageStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PageStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		company TEXT NOT NULL,
		company_id INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL,
		api_url TEXT,
		selector TEXT NOT NULL DEFAULT '',
		response_type TEXT NOT NULL DEFAULT 'html',
		title_key TEXT,
		job_id_key TEXT,
		job_url_key TEXT,
		job_url_prefix TEXT,
		request_method TEXT NOT NULL DEFAULT 'GET',
		request_payload TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (company, name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *PageStore) Close() error {
	return s.db.Close()
}

// CreatePage validates and stores p, returning it with its assigned ID.
func (s *PageStore) CreatePage(p scraper.Page) (*scraper.Page, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.RequestMethod = p.Method()

	var payload *string
	if p.RequestPayload != nil {
		data, err := json.Marshal(p.RequestPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request_payload: %w", err)
		}
		str := string(data)
		payload = &str
	}

	query := `
		INSERT INTO pages (
			name, company, company_id, url, api_url, selector, response_type,
			title_key, job_id_key, job_url_key, job_url_prefix,
			request_method, request_payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		p.Name,
		p.Company,
		p.CompanyID,
		p.URL,
		nullable(p.APIURL),
		p.Selector,
		p.ResponseType.String(),
		nullable(p.TitleKey),
		nullable(p.JobIDKey),
		nullable(p.JobURLKey),
		nullable(p.JobURLPrefix),
		string(p.RequestMethod),
		payload,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicatePage
		}
		return nil, fmt.Errorf("failed to insert page: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get page id: %w", err)
	}
	p.ID = int(id)

	return &p, nil
}

const selectPages = `
	SELECT id, name, company, company_id, url, api_url, selector, response_type,
	       title_key, job_id_key, job_url_key, job_url_prefix,
	       request_method, request_payload
	FROM pages
`

// GetPage retrieves a page by ID.
func (s *PageStore) GetPage(id int) (*scraper.Page, error) {
	row := s.db.QueryRow(selectPages+" WHERE id = ?", id)

	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return page, nil
}

// ListPages lists pages in creation order.
func (s *PageStore) ListPages(filter PageFilter) ([]scraper.Page, error) {
	query := selectPages
	var args []any

	if filter.Company != nil {
		query += " WHERE company = ?"
		args = append(args, *filter.Company)
	}

	query += " ORDER BY id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := []scraper.Page{}
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}

	return pages, rows.Err()
}

// DeletePage deletes a page.
func (s *PageStore) DeletePage(id int) error {
	result, err := s.db.Exec("DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPageNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*scraper.Page, error) {
	var p scraper.Page
	var responseType, method string
	var apiURL, titleKey, idKey, urlKey, urlPrefix, payload sql.NullString

	err := row.Scan(
		&p.ID, &p.Name, &p.Company, &p.CompanyID, &p.URL, &apiURL, &p.Selector,
		&responseType, &titleKey, &idKey, &urlKey, &urlPrefix, &method, &payload,
	)
	if err != nil {
		return nil, err
	}

	p.APIURL = apiURL.String
	p.TitleKey = titleKey.String
	p.JobIDKey = idKey.String
	p.JobURLKey = urlKey.String
	p.JobURLPrefix = urlPrefix.String

	if p.ResponseType, err = scraper.ParseResponseType(responseType); err != nil {
		return nil, err
	}
	if p.RequestMethod, err = scraper.ParseMethod(method); err != nil {
		return nil, err
	}
	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &p.RequestPayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request_payload: %w", err)
		}
	}

	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
