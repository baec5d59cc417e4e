package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/trigger"
)

func newTriggerCmd(a *app) *cobra.Command {
	var once bool
	var schedule, action string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Start batch runs on a schedule",
		Long: `Start batch runs on a cron schedule.

Actions:
  ping     ask the server for its page list, which opens a push and queues the batch
  run      scrape the local page store and report the batch directly
  enqueue  publish the local page store to the Redis queue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = a.cfg.Trigger.Schedule
			}
			if action == "" {
				action = a.cfg.Trigger.Action
			}

			job, err := a.triggerJob(action)
			if err != nil {
				return err
			}

			t, err := trigger.New(schedule, job, a.logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if once {
				return t.RunOnce(ctx)
			}

			if err := t.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			t.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run the action once and exit")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (default from config)")
	cmd.Flags().StringVar(&action, "action", "", "ping, run or enqueue (default from config)")
	return cmd
}

func (a *app) triggerJob(action string) (trigger.Job, error) {
	switch action {
	case "ping":
		lister := a.newLister()
		return func(ctx context.Context) error {
			b, err := lister.Pages(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("server listed pages", "pages", len(b.Pages))
			return nil
		}, nil

	case "run":
		svc, err := a.newService()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			b, err := a.localBatch(queue.NoPushID)
			if err != nil {
				return err
			}
			return svc.Handle(ctx, b)
		}, nil

	case "enqueue":
		return func(ctx context.Context) error {
			n, err := a.enqueueLocal(ctx, queue.NoPushID)
			if err != nil {
				return err
			}
			a.logger.Info("enqueued batch", "pages", n)
			return nil
		}, nil
	}
	return nil, fmt.Errorf("unknown trigger action %q", action)
}
