// Package scheduler serializes and coalesces repeated requests to run a function.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"go.trai.ch/sift/internal/core/domain"
)

// RunFunc is the work a Scheduler serializes.
type RunFunc func() error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithErrorHandler sets the handler for failures of runs nobody is awaiting.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// Scheduler runs a function at most once at a time.
//
// A request that arrives while a run is active is remembered in a single
// pending slot: any number of requests during one run produce exactly one
// follow-up run.
type Scheduler struct {
	run     RunFunc
	onError func(error)

	mu      sync.Mutex
	running bool
	pending bool
	stopped bool
	// current waits on the active run, next on the follow-up run.
	current []*waiter
	next    []*waiter
	done    chan struct{}
}

const (
	waiting int32 = iota
	delivered
	abandoned
)

// waiter is one InvalidateAndAwait call. Its result is either delivered or,
// once the caller has given up, left for the error handler.
type waiter struct {
	ch    chan error
	state atomic.Int32
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan error, 1)}
}

func (w *waiter) deliver(err error) bool {
	if !w.state.CompareAndSwap(waiting, delivered) {
		return false
	}
	w.ch <- err
	return true
}

// New creates a scheduler for fn.
func New(fn RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{run: fn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate requests a run without waiting for it.
func (s *Scheduler) Invalidate() {
	s.request(nil)
}

// InvalidateAndAwait requests a run and waits until the run covering this
// request has finished, returning that run's error.
// If ctx is done first, ctx.Err() is returned and the run continues in the
// background; its failure then goes to the error handler.
func (s *Scheduler) InvalidateAndAwait(ctx context.Context) error {
	w := newWaiter()
	if !s.request(w) {
		return domain.ErrSchedulerStopped
	}

	select {
	case err := <-w.ch:
		return err
	case <-ctx.Done():
		if w.state.CompareAndSwap(waiting, abandoned) {
			return ctx.Err()
		}
		// The result was delivered while giving up.
		return <-w.ch
	}
}

// Stop permanently disables scheduling. Active and already pending runs still complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Wait blocks until no run is active or pending, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) request(w *waiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	if s.running {
		s.pending = true
		if w != nil {
			s.next = append(s.next, w)
		}
		return true
	}

	s.running = true
	if w != nil {
		s.current = append(s.current, w)
	}
	s.done = make(chan struct{})
	go s.loop(s.done)
	return true
}

// loop is the single worker. It drains the pending slot before exiting.
func (s *Scheduler) loop(done chan struct{}) {
	defer close(done)

	for {
		err := s.run()

		s.mu.Lock()
		waiters := s.current
		s.current = nil
		followUp := s.pending
		if followUp {
			s.pending = false
			s.current = s.next
			s.next = nil
		} else {
			s.running = false
		}
		s.mu.Unlock()

		received := false
		for _, w := range waiters {
			if w.deliver(err) {
				received = true
			}
		}
		if err != nil && !received && s.onError != nil {
			s.onError(err)
		}

		if !followUp {
			return
		}
	}
}
