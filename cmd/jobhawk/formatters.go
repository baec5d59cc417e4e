package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pevans/jobhawk/ingest"
	"github.com/pevans/jobhawk/scraper"
	"github.com/pevans/jobhawk/spool"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printResult prints a batch result as a summary line followed by tables
// of jobs and errors.
func printResult(w io.Writer, res *scraper.BatchResult) {
	fmt.Fprintf(w, "Found %d jobs and %d errors\n", len(res.Jobs), len(res.Errors))

	if len(res.Jobs) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Title", "Company", "Job ID", "URL"})
		for _, job := range res.Jobs {
			t.AppendRow(table.Row{truncate(job.Title, 60), job.Company, job.JobID, job.URL})
		}
		t.Render()
	}

	if len(res.Errors) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Page", "Company", "Error"})
		for _, e := range res.Errors {
			t.AppendRow(table.Row{e.Page.Name, e.Page.Company, truncate(e.Error, 80)})
		}
		t.Render()
	}
}

// printJSON prints v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printPages(w io.Writer, list []scraper.Page) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No pages configured.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Company", "Name", "Type", "Method", "URL"})
	for _, p := range list {
		t.AppendRow(table.Row{p.ID, p.Company, p.Name, p.ResponseType, p.Method(), truncate(p.EffectiveURL(), 60)})
	}
	t.Render()
}

func printJobs(w io.Writer, jobs []ingest.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Company", "First seen", "Last seen"})
	for _, j := range jobs {
		t.AppendRow(table.Row{j.ID, truncate(j.Title, 60), j.Company, j.FirstSeen.Format(scraper.TimestampLayout), j.LastSeen.Format(scraper.TimestampLayout)})
	}
	t.Render()
}

func printSpool(w io.Writer, entries []spool.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Spool is empty.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Created", "Endpoint", "Push", "Jobs", "Errors"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID.String()[:8],
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Endpoint,
			e.Payload.Data.PushID,
			e.Payload.Data.NJobsFound,
			e.Payload.Data.NErrors,
		})
	}
	t.Render()
}
