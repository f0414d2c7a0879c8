package game

import (
	"context"
	"time"
)

type task struct {
	delay time.Duration
	fn    func()
}

// Scheduler runs delayed callbacks one at a time in FIFO order on the
// caller's goroutine. While work is queued it reports Busy, which a driver
// uses to ignore re-entrant roll requests during animations.
type Scheduler struct {
	queue []task
	busy  bool
	wait  func(ctx context.Context, d time.Duration) error
}

// NewScheduler returns a scheduler that sleeps for real.
func NewScheduler() *Scheduler { return &Scheduler{wait: sleep} }

// Busy reports whether queued work is pending or running.
func (s *Scheduler) Busy() bool { return s.busy }

// TryBegin marks the scheduler busy. It returns false if it already was.
func (s *Scheduler) TryBegin() bool {
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// After queues fn to run d after the previous callback finished.
// Callbacks may queue further callbacks; those run after everything
// already queued.
func (s *Scheduler) After(d time.Duration, fn func()) {
	s.busy = true
	s.queue = append(s.queue, task{delay: d, fn: fn})
}

// Run drains the queue, then clears the busy flag.
func (s *Scheduler) Run(ctx context.Context) error {
	defer func() { s.busy = false }()
	for len(s.queue) > 0 {
		t := s.queue[0]
		s.queue = s.queue[1:]
		if t.delay > 0 {
			if err := s.wait(ctx, t.delay); err != nil {
				s.queue = nil
				return err
			}
		}
		t.fn()
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
