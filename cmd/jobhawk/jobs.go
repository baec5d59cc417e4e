package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/ingest"
)

func newJobsCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs recorded by the local ingestion server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ingest.NewStore(a.cfg.Storage.IngestDSN)
			if err != nil {
				return fmt.Errorf("failed to open ingest store: %w", err)
			}
			defer store.Close()

			jobs, err := store.ListJobs(limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, jobs)
			}
			printJobs(a.out, jobs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}
