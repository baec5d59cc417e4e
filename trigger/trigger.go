// Package trigger starts scrape runs on a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is the work started on every tick.
type Job func(ctx context.Context) error

// Trigger wraps robfig/cron and runs a single job on a schedule. A tick
// that arrives while the previous run is still going is skipped.
type Trigger struct {
	cron     *cron.Cron
	spec     string
	stop     chan struct{}
	stopOnce sync.Once
	// closed once the context watcher started by Start has returned
	watching chan struct{}
	job      Job
	logger   *slog.Logger
}

// New creates a Trigger running job on spec, a standard five-field cron
// expression or a descriptor such as "@every 15m".
func New(spec string, job Job, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "trigger")
	cl := cronLogger{logger}

	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Trigger{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		spec:     spec,
		stop:     make(chan struct{}),
		watching: make(chan struct{}),
		job:      job,
		logger:   logger,
	}, nil
}

// Start registers the job and starts the scheduler. It returns
// immediately; runs stop being scheduled once ctx is done or Stop is
// called.
func (t *Trigger) Start(ctx context.Context) error {
	_, err := t.cron.AddFunc(t.spec, func() {
		if err := t.RunOnce(ctx); err != nil {
			t.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	t.cron.Start()
	t.logger.Info("trigger started", "schedule", t.spec)

	go func() {
		defer close(t.watching)
		select {
		case <-ctx.Done():
			t.cron.Stop()
		case <-t.stop:
		}
	}()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (t *Trigger) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.cron.Stop().Done()
	t.logger.Info("trigger stopped")
}

// RunOnce runs the job immediately.
func (t *Trigger) RunOnce(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.logger.Info("run started")
	return t.job(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
