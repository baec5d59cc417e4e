package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/report"
)

func newResendCmd(a *app) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Deliver spooled batches that failed to send",
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := a.openSpool()
			if err != nil {
				return err
			}

			res, err := sp.List()
			if err != nil {
				return err
			}
			for _, re := range res.Errors {
				a.logger.Warn("unreadable spool entry", "file", re.Filename, "error", re.Err)
			}

			if list {
				printSpool(a.out, res.Entries)
				return nil
			}
			if len(res.Entries) == 0 {
				fmt.Fprintln(a.out, "Spool is empty.")
				return nil
			}

			var failed int
			for _, e := range res.Entries {
				rep := report.NewReporter(e.Endpoint, a.cfg.APIKey, a.cfg.Fetch.Timeout, a.logger)
				if err := rep.Send(cmd.Context(), e.Payload); err != nil {
					a.logger.Error("resend failed", "spool_id", e.ID, "error", err)
					failed++
					continue
				}
				if err := sp.Remove(e.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Delivered %s (push %d, %d jobs)\n", e.ID, e.Payload.Data.PushID, e.Payload.Data.NJobsFound)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d spooled batches could not be delivered", failed, len(res.Entries))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "Only list spooled batches")
	return cmd
}
