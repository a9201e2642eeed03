package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rooster/internal/types"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Runner ticks a named task on a fixed interval. The first run happens
// immediately on Start rather than one interval later, so a freshly deployed
// scanner does not sit idle for an hour. Task panics are contained: a broken
// tick must not take the process down with it.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	logger   types.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRunner creates a Runner for the task.
func NewRunner(name string, interval time.Duration, task Task, logger types.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine and returns immediately.
// The loop ends when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop signals the loop to end and blocks until the in-flight tick, if any,
// has finished. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.doneCh)

	r.logger.Info("runner started",
		"task", r.name,
		"interval", r.interval.String(),
	)

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", "task", r.name, "reason", "context cancelled")
			return
		case <-r.stopCh:
			r.logger.Info("runner stopping", "task", r.name, "reason", "stop requested")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				"task", r.name,
				"panic", fmt.Sprint(rec),
			)
		}
	}()

	if err := r.task(ctx); err != nil {
		r.logger.Error("task failed", "task", r.name, "error", err)
	}
}
