package main

import (
	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/queue"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume page batches from Redis and scrape them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rdb, err := a.redisClient(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			svc, err := a.newService()
			if err != nil {
				return err
			}

			consumer := queue.NewConsumer(rdb, a.cfg.Redis.Queue, a.cfg.Redis.BlockTimeout, a.logger)
			return consumer.Run(ctx, svc.Handle)
		},
	}
}
