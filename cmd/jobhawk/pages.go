package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/pages"
	"github.com/pevans/jobhawk/scraper"
)

func newPagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage the local page store",
	}
	cmd.AddCommand(newPagesListCmd(a), newPagesAddCmd(a), newPagesDeleteCmd(a))
	return cmd
}

func newPagesListCmd(a *app) *cobra.Command {
	var company string
	var limit, offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openPages()
			if err != nil {
				return err
			}
			defer store.Close()

			filter := pages.PageFilter{Limit: limit, Offset: offset}
			if company != "" {
				filter.Company = &company
			}

			list, err := store.ListPages(filter)
			if err != nil {
				return err
			}
			if asJSON {
				if list == nil {
					list = []scraper.Page{}
				}
				return printJSON(a.out, list)
			}
			printPages(a.out, list)
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "Only pages of this company")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of pages")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of pages to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print pages as JSON")
	return cmd
}

func newPagesAddCmd(a *app) *cobra.Command {
	f := &pageFlags{}
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a page from flags or from a JSON5 file",
		Example: `  jobhawk pages add --name Careers --company Acme -u https://acme.example/careers -s ".opening a"
  jobhawk pages add --file pages.json5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []scraper.Page
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				list, err = decodePagesJSON5(data)
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", file, err)
				}
			} else {
				p, err := f.page()
				if err != nil {
					return err
				}
				list = []scraper.Page{p}
			}

			store, err := a.openPages()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, p := range list {
				created, err := store.CreatePage(p)
				if err != nil {
					return fmt.Errorf("failed to add %q: %w", p.Name, err)
				}
				fmt.Fprintf(a.out, "✓ Added page %d: %s (%s)\n", created.ID, created.Name, created.Company)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.name, "name", "", "Page name")
	cmd.Flags().StringVar(&f.company, "company", "", "Company name")
	cmd.Flags().IntVar(&f.companyID, "company-id", 0, "Company ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON5 file holding one page or an array of pages")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	return cmd
}

func newPagesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid page ID %q", args[0])
			}

			store, err := a.openPages()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeletePage(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Deleted page %d\n", id)
			return nil
		},
	}
}
