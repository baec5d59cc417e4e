// Package report turns a batch result into the ingestion wire payload and
// delivers it.
package report

import "github.com/pevans/jobhawk/scraper"

// Payload is the JSON document posted to the ingestion endpoint.
type Payload struct {
	Time string `json:"time"`
	Data Data   `json:"data"`
}

// Data is the body of a Payload.
type Data struct {
	PushID     int          `json:"push_id"`
	Timestamp  string       `json:"timestamp"`
	NJobsFound int          `json:"n_jobs_found"`
	NErrors    int          `json:"n_errors"`
	Jobs       []JobEntry   `json:"jobs"`
	Errors     []ErrorEntry `json:"errors"`
}

// JobEntry is one posting on the wire.
type JobEntry struct {
	Title     string  `json:"title"`
	Company   string  `json:"company"`
	CompanyID int     `json:"company_id"`
	Page      PageRef `json:"page"`
	LastSeen  string  `json:"last_seen"`
	JobID     string  `json:"job_id"`
	URL       string  `json:"url"`
}

// PageRef identifies the page a posting came from.
type PageRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
}

// ErrorEntry is one failed page on the wire.
type ErrorEntry struct {
	Page  ErrorPageRef `json:"page"`
	Error string       `json:"error"`
}

// ErrorPageRef identifies a failed page. It carries no id.
type ErrorPageRef struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
}

// Build converts res into its wire form. Jobs and errors are always
// encoded as arrays, never null.
func Build(res *scraper.BatchResult) Payload {
	ts := scraper.FormatTimestamp(res.Timestamp)

	jobs := make([]JobEntry, 0, len(res.Jobs))
	for _, j := range res.Jobs {
		jobs = append(jobs, JobEntry{
			Title:     j.Title,
			Company:   j.Company,
			CompanyID: j.CompanyID,
			Page: PageRef{
				ID:       j.Page.ID,
				Name:     j.Page.Name,
				Company:  j.Page.Company,
				URL:      j.Page.URL,
				Selector: j.Page.Selector,
			},
			LastSeen: scraper.FormatTimestamp(j.LastSeen),
			JobID:    j.JobID,
			URL:      j.URL,
		})
	}

	errs := make([]ErrorEntry, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, ErrorEntry{
			Page: ErrorPageRef{
				Name:     e.Page.Name,
				Company:  e.Page.Company,
				URL:      e.Page.URL,
				Selector: e.Page.Selector,
			},
			Error: e.Error,
		})
	}

	return Payload{
		Time: ts,
		Data: Data{
			PushID:     res.PushID,
			Timestamp:  ts,
			NJobsFound: len(jobs),
			NErrors:    len(errs),
			Jobs:       jobs,
			Errors:     errs,
		},
	}
}
