package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/config"
	"github.com/pevans/jobhawk/discovery"
	"github.com/pevans/jobhawk/fetch"
	"github.com/pevans/jobhawk/logging"
	"github.com/pevans/jobhawk/pages"
	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/report"
	"github.com/pevans/jobhawk/spool"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	var cfgPath, mode string
	var verbose bool

	root := &cobra.Command{
		Use:           "jobhawk",
		Short:         "jobhawk scrapes company career pages for job postings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()

			opts := config.Options{Path: cfgPath}
			if mode != "" {
				m, err := config.ParseMode(mode)
				if err != nil {
					return err
				}
				opts.Mode = m
			}

			cfg, err := config.Load(opts)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.jobhawk/config.yaml)")
	root.PersistentFlags().StringVar(&mode, "mode", "", "Run mode: local or production")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newScrapeCmd(a),
		newRunCmd(a),
		newWorkerCmd(a),
		newEnqueueCmd(a),
		newTriggerCmd(a),
		newPagesCmd(a),
		newServeCmd(a),
		newResendCmd(a),
		newJobsCmd(a),
	)
	return root
}

func (a *app) newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{
		Timeout:         a.cfg.Fetch.Timeout,
		HeaderOverrides: a.cfg.Fetch.HeaderOverrides,
		RateLimit:       a.cfg.Fetch.RateLimit,
		Retries:         a.cfg.Fetch.Retries,
		Logger:          a.logger,
	})
}

func (a *app) newRunner() *discovery.Runner {
	scr := discovery.NewScraper(a.newFetcher(), a.logger)
	return discovery.NewRunner(scr, &discovery.RunnerConfig{Concurrency: a.cfg.Fetch.Concurrency}, a.logger)
}

func (a *app) newReporter() *report.Reporter {
	return report.NewReporter(a.cfg.PushURL(), a.cfg.APIKey, a.cfg.Fetch.Timeout, a.logger)
}

func (a *app) newLister() *queue.Lister {
	return queue.NewLister(a.cfg.ServerURL, a.cfg.APIKey, a.cfg.Fetch.Timeout, a.logger)
}

func (a *app) openSpool() (*spool.Spool, error) {
	return spool.New(a.cfg.Storage.SpoolDir)
}

func (a *app) newService() (*discovery.Service, error) {
	sp, err := a.openSpool()
	if err != nil {
		return nil, err
	}
	return discovery.NewService(a.newRunner(), a.newReporter(), sp, a.logger), nil
}

func (a *app) openPages() (*pages.PageStore, error) {
	store, err := pages.NewPageStore(a.cfg.Storage.PagesDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	return store, nil
}

func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.cfg.Redis.URL == "" {
		return nil, fmt.Errorf("redis.url is not configured")
	}
	return queue.NewRedisClient(ctx, a.cfg.Redis.URL)
}

// localBatch reads every page from the local page store.
func (a *app) localBatch(pushID int) (queue.Batch, error) {
	store, err := a.openPages()
	if err != nil {
		return queue.Batch{}, err
	}
	defer store.Close()

	list, err := store.ListPages(pages.PageFilter{})
	if err != nil {
		return queue.Batch{}, err
	}
	return queue.Batch{PushID: pushID, Pages: list}, nil
}
