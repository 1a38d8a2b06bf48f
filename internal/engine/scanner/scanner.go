// Package scanner incrementally scans a changing set of append-only session
// files and hands every event to its source exactly once per key.
package scanner

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/engine/scheduler"
)

// Scanner drives a Source: it discovers files, parses them from their last
// committed cursor, drops already delivered events and commits progress.
//
// Passes are triggered by file changes, a periodic fallback and explicit
// Invalidate calls. At most one pass runs at a time.
type Scanner[E any] struct {
	source Source[E]
	opts   options
	sched  *scheduler.Scheduler

	watches *watchRegistry
	cursors *cursorTable
	keys    *keySet

	stopped atomic.Bool

	mu       sync.Mutex
	started  bool
	runCtx   context.Context
	inFlight *pass
	tickStop chan struct{}
	tickDone chan struct{}
}

var _ Control = (*Scanner[struct{}])(nil)

// New creates a scanner for source. watcher may be nil, in which case only
// the periodic fallback and explicit invalidations trigger passes.
func New[E any](source Source[E], watcher ports.FileWatcher, opts ...Option) *Scanner[E] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.onError == nil {
		o.onError = o.logger.Error
	}

	s := &Scanner[E]{
		source:  source,
		opts:    o,
		cursors: newCursorTable(),
		keys:    newKeySet(o.maxKeys),
		runCtx:  context.Background(),
	}
	s.sched = scheduler.New(s.run, scheduler.WithErrorHandler(o.onError))
	s.watches = newWatchRegistry(watcher, s.sched.Invalidate)
	return s
}

// Start initializes the source, runs the first pass synchronously and arms
// the periodic fallback. The first pass's failure is returned.
func (s *Scanner[E]) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped.Load():
		s.mu.Unlock()
		return domain.ErrScannerStopped
	case s.started:
		s.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	s.started = true
	s.runCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if h, ok := s.source.(Initializer); ok {
		if err := h.Initialize(ctx, s); err != nil {
			return wrapHook(err)
		}
	}

	if err := s.sched.InvalidateAndAwait(ctx); err != nil {
		return err
	}

	s.armTicker()
	return nil
}

// Scan runs one pass and returns its outcome. If a pass is already in
// flight, Scan joins it instead.
func (s *Scanner[E]) Scan(ctx context.Context) error {
	return s.sched.InvalidateAndAwait(ctx)
}

// Cleanup stops the scanner: no new pass starts, every subscription is
// cancelled and the pass in flight, if any, is awaited. Its failure is
// not reported. Cleanup is idempotent.
func (s *Scanner[E]) Cleanup(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	tickStop, tickDone := s.tickStop, s.tickDone
	s.tickStop = nil
	s.mu.Unlock()
	if tickStop != nil {
		close(tickStop)
		<-tickDone
	}

	s.sched.Stop()

	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()

	s.watches.close()

	if inFlight != nil {
		select {
		case <-inFlight.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.sched.Wait(ctx)
}

// Stopped reports whether Cleanup has been called.
func (s *Scanner[E]) Stopped() bool {
	return s.stopped.Load()
}

// SeedKeys marks keys as already delivered.
func (s *Scanner[E]) SeedKeys(keys iter.Seq[string]) {
	s.keys.add(keys)
}

// Cursor returns the committed cursor for path.
func (s *Scanner[E]) Cursor(path string) int64 {
	return s.cursors.get(path)
}

// SetCursor overrides the committed cursor for path.
func (s *Scanner[E]) SetCursor(path string, cursor int64) {
	s.cursors.set(path, cursor)
}

// WatchedFiles returns the watched paths in lexical order.
func (s *Scanner[E]) WatchedFiles() []string {
	return s.watches.paths()
}

// PruneWatches cancels every subscription whose path is not in keep.
func (s *Scanner[E]) PruneWatches(keep []string) {
	s.watches.prune(keep)
}

// Invalidate requests a pass without waiting for it.
func (s *Scanner[E]) Invalidate() {
	s.sched.Invalidate()
}

// Snapshot captures the committed cursors and delivered keys.
func (s *Scanner[E]) Snapshot() domain.Checkpoint {
	cp := domain.NewCheckpoint()
	cp.Cursors = s.cursors.snapshot()
	cp.Keys = s.keys.snapshot()
	return cp
}

// KeyCount returns the size of the dedup index.
func (s *Scanner[E]) KeyCount() int {
	return s.keys.len()
}

// run is the scheduler's work function.
func (s *Scanner[E]) run() error {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	return s.scan(ctx)
}

func (s *Scanner[E]) armTicker() {
	if s.opts.interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() || s.tickStop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.tickStop, s.tickDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sched.Invalidate()
			case <-stop:
				return
			}
		}
	}()
}

// active reports whether a pass may proceed.
func (s *Scanner[E]) active() bool {
	if s.stopped.Load() {
		return false
	}
	if g, ok := s.source.(ScanGate); ok {
		return g.ShouldScan()
	}
	return true
}

func (s *Scanner[E]) shouldWatch(path string) bool {
	if f, ok := s.source.(WatchFilter); ok {
		return f.ShouldWatch(path)
	}
	return true
}
