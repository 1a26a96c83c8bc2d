package recurring

import (
	"context"
	"sync"
	"time"

	"gelgid/internal/logger"
)

// BacklogFunc runs one full backlog pass over all rules in scope.
type BacklogFunc func(ctx context.Context) error

// Scheduler periodically re-runs recurring materialization. Unlike a
// free-running loop, its lifetime is bound to the context passed to Start and
// it can be stopped explicitly; tests drive it through RunOnce instead of
// waiting on the timer.
type Scheduler struct {
	run      BacklogFunc
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that invokes run every interval.
func NewScheduler(run BacklogFunc, interval time.Duration) *Scheduler {
	return &Scheduler{run: run, interval: interval}
}

// Start launches the periodic loop: one immediate pass, then one per interval
// until the context is cancelled or Stop is called. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		if err := s.run(ctx); err != nil && ctx.Err() == nil {
			logger.Get().Warnw("recurring pass failed", "error", err)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.run(ctx); err != nil && ctx.Err() == nil {
					logger.Get().Warnw("recurring pass failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight pass to finish.
// Stopping a scheduler that was never started is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce executes a single pass synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.run(ctx)
}
