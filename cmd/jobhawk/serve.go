package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/ingest"
	"github.com/pevans/jobhawk/queue"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var withQueue bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local ingestion server",
		Long: `Run a local stand-in for the job server.

It serves the page list from the local page store and records pushed
batches in SQLite. With --queue, listing pages also opens a push and
publishes the batch to Redis for "jobhawk worker".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			store, err := ingest.NewStore(a.cfg.Storage.IngestDSN)
			if err != nil {
				return fmt.Errorf("failed to open ingest store: %w", err)
			}
			defer store.Close()

			pageStore, err := a.openPages()
			if err != nil {
				return err
			}
			defer pageStore.Close()

			var enqueuer ingest.Enqueuer
			if withQueue {
				rdb, err := a.redisClient(ctx)
				if err != nil {
					return err
				}
				defer rdb.Close()
				enqueuer = queue.NewPublisher(rdb, a.cfg.Redis.Queue)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           ingest.NewAPIServer(store, pageStore, enqueuer, a.cfg.APIKey, a.logger).SetupRouter(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("ingest server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			a.logger.Info("ingest server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&withQueue, "queue", false, "Publish listed pages to the Redis queue")
	return cmd
}
