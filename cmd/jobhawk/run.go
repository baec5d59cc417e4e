package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/report"
)

func newRunCmd(a *app) *cobra.Command {
	var fromServer, dryRun bool
	var pushID int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every configured page once and report the batch",
		Long: `Scrape a whole batch and deliver it to the ingestion endpoint.

Pages come from the local page store, or from the server with --from-server.
A batch that cannot be delivered is kept in the spool for "jobhawk resend".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var b queue.Batch
			var err error
			if fromServer {
				b, err = a.newLister().Pages(ctx)
			} else {
				b, err = a.localBatch(pushID)
			}
			if err != nil {
				return err
			}
			if pushID != queue.NoPushID {
				b.PushID = pushID
			}

			if dryRun {
				res := a.newRunner().Run(ctx, b.PushID, b.Pages)
				printResult(a.out, res)
				return nil
			}

			svc, err := a.newService()
			if err != nil {
				return err
			}
			res, err := svc.Process(ctx, b)
			printResult(a.out, res)
			if err != nil {
				if hint := deliveryHint(err); hint != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), hint)
				}
				return err
			}
			fmt.Fprintf(a.out, "✓ Delivered batch to %s\n", a.cfg.PushURL())
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromServer, "from-server", false, "List pages from the server instead of the local page store")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scrape and print without reporting")
	cmd.Flags().IntVar(&pushID, "push-id", queue.NoPushID, "Push ID to report against")
	return cmd
}

// deliveryHint explains where an undelivered batch went.
func deliveryHint(err error) string {
	var de *report.DeliveryError
	if errors.As(err, &de) {
		return "the payload was kept in the spool; run \"jobhawk resend\" to retry"
	}
	return ""
}
