package main

import (
	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/report"
	"github.com/pevans/jobhawk/scraper"
)

func newScrapeCmd(a *app) *cobra.Command {
	f := &pageFlags{}
	var pageID int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a single page and print what was found",
		Long: `Scrape one page without reporting the result.

The page is described with flags, or loaded from the page store with --id.`,
		Example: `  jobhawk scrape -u https://example.com/careers -s ".job h3"
  jobhawk scrape -u https://example.com/api/jobs -r json -s data,jobs --title-key title --job-id-key id
  jobhawk scrape --id 4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var page scraper.Page
			if pageID > 0 {
				store, err := a.openPages()
				if err != nil {
					return err
				}
				defer store.Close()

				p, err := store.GetPage(pageID)
				if err != nil {
					return err
				}
				page = *p
			} else {
				p, err := f.page()
				if err != nil {
					return err
				}
				page = p
			}

			res := a.newRunner().Run(cmd.Context(), queue.NoPushID, []scraper.Page{page})
			if asJSON {
				return printJSON(a.out, report.Build(res))
			}
			printResult(a.out, res)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.name, "name", "Test Page", "Page name")
	cmd.Flags().StringVar(&f.company, "company", "Test Company", "Company name, also used for header overrides")
	cmd.Flags().IntVar(&f.companyID, "company-id", 1, "Company ID")
	cmd.Flags().IntVar(&pageID, "id", 0, "Scrape the stored page with this ID instead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report payload as JSON")
	cmd.MarkFlagsMutuallyExclusive("id", "url")
	return cmd
}
