// internal/schedule/scheduler.go
package schedule

import (
	"context"
	"time"

	"github.com/promoscout/promoscout/internal/utils"
)

// Runner is anything the scheduler can trigger.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

// RunOnce calls f.
func (f RunnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }

// Scheduler triggers a runner on a fixed interval. It owns no run semantics
// of its own: overlap protection and error handling live in the runner.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	logger     utils.Logger
}

// Options configures a scheduler.
type Options struct {
	Interval   time.Duration
	RunOnStart bool
}

// New creates a scheduler for the given runner.
func New(runner Runner, logger utils.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 6 * time.Hour
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	return &Scheduler{
		runner:     runner,
		interval:   opts.Interval,
		runOnStart: opts.RunOnStart,
		logger:     logger,
	}
}

// Run blocks, triggering the runner every interval until the context is
// cancelled. Runner errors are logged and do not stop the schedule.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("scheduler started")

	if s.runOnStart {
		s.trigger(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Errorf("scheduled run failed: %v", err)
	}
}
