package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/queue"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var pushID int

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Publish the local page store as one batch to the Redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.enqueueLocal(cmd.Context(), pushID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Enqueued %d pages on %s\n", n, a.cfg.Redis.Queue)
			return nil
		},
	}

	cmd.Flags().IntVar(&pushID, "push-id", queue.NoPushID, "Push ID carried by the batch")
	return cmd
}

func (a *app) enqueueLocal(ctx context.Context, pushID int) (int, error) {
	b, err := a.localBatch(pushID)
	if err != nil {
		return 0, err
	}

	rdb, err := a.redisClient(ctx)
	if err != nil {
		return 0, err
	}
	defer rdb.Close()

	if err := queue.NewPublisher(rdb, a.cfg.Redis.Queue).Enqueue(ctx, b); err != nil {
		return 0, err
	}
	return len(b.Pages), nil
}
