package scanner_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.trai.ch/sift/internal/engine/scanner"
	"go.uber.org/mock/gomock"
)

func newScanner(src scanner.Source[string], w ports.FileWatcher, opts ...scanner.Option) *scanner.Scanner[string] {
	opts = append([]scanner.Option{scanner.WithInterval(0)}, opts...)
	return scanner.New(src, w, opts...)
}

func TestScanner_ResumesFromCursorAndSkipsDelivered(t *testing.T) {
	src := newFakeSource("a.log")
	src.results["a.log"] = result(120, "k1", "k2")
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	assert.Equal(t, []string{"k1", "k2"}, src.events())
	assert.Equal(t, int64(120), s.Cursor("a.log"))

	src.set(func(f *fakeSource) { f.results["a.log"] = result(180, "k2", "k3") })
	require.NoError(t, s.Scan(t.Context()))

	assert.Equal(t, []string{"k1", "k2", "k3"}, src.events())
	assert.Equal(t, []int64{0, 120}, src.parsedFrom("a.log"))
	assert.Equal(t, int64(180), s.Cursor("a.log"))

	stats := src.lastStats()
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, int64(120), stats.Cursor)
	assert.Equal(t, int64(180), stats.NextCursor)
}

func TestScanner_ConsumerFailureLeavesFileUncommitted(t *testing.T) {
	src := newFakeSource("b.log")
	src.results["b.log"] = result(64, "e1", "e2")
	consumerErr := errors.New("downstream unavailable")
	src.consumeErr["b.log"] = consumerErr
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	err := s.Start(t.Context())
	require.ErrorIs(t, err, consumerErr)
	require.ErrorContains(t, err, domain.ErrConsumerFailed.Error())
	assert.Equal(t, int64(0), s.Cursor("b.log"))
	assert.Zero(t, s.KeyCount())

	src.set(func(f *fakeSource) { delete(f.consumeErr, "b.log") })
	require.NoError(t, s.Scan(t.Context()))

	assert.Equal(t, []int64{0, 0}, src.parsedFrom("b.log"))
	assert.Equal(t, []string{"e1", "e2"}, src.events())
	assert.Equal(t, int64(64), s.Cursor("b.log"))
}

func TestScanner_DedupIsIdempotent(t *testing.T) {
	src := newFakeSource("a.log")
	src.results["a.log"] = result(10, "k1", "k1", "k2")
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	assert.Equal(t, []string{"k1", "k2"}, src.events())
	assert.Equal(t, 1, src.lastStats().Skipped)

	for range 3 {
		require.NoError(t, s.Scan(t.Context()))
	}

	assert.Equal(t, []string{"k1", "k2"}, src.events())
	assert.Equal(t, 2, s.KeyCount())
	stats := src.lastStats()
	assert.Empty(t, stats.Events)
	assert.Equal(t, 3, stats.Skipped)
}

func TestScanner_CursorNeverMovesOnFailure(t *testing.T) {
	src := newFakeSource("a.log")
	src.results["a.log"] = result(50, "k1")
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	require.Equal(t, int64(50), s.Cursor("a.log"))

	parseErr := errors.New("truncated record")
	src.set(func(f *fakeSource) {
		f.results["a.log"] = result(90, "k2")
		f.parseErr["a.log"] = parseErr
	})
	err := s.Scan(t.Context())
	require.ErrorIs(t, err, parseErr)
	require.ErrorContains(t, err, domain.ErrParseFailed.Error())
	assert.Equal(t, int64(50), s.Cursor("a.log"))

	src.set(func(f *fakeSource) { delete(f.parseErr, "a.log") })
	require.NoError(t, s.Scan(t.Context()))
	assert.Equal(t, int64(90), s.Cursor("a.log"))
}

func TestScanner_PassAbortsOnFirstFileError(t *testing.T) {
	src := newFakeSource("a.log", "b.log")
	src.parseErr["a.log"] = errors.New("boom")
	src.results["b.log"] = result(5, "k1")
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.Error(t, s.Start(t.Context()))
	assert.Empty(t, src.parsedFrom("b.log"))
	assert.Empty(t, src.events())
}

func TestScanner_ContinueOnFileError(t *testing.T) {
	src := newFakeSource("a.log", "b.log")
	parseErr := errors.New("boom")
	src.parseErr["a.log"] = parseErr
	src.results["b.log"] = result(5, "k1")
	s := newScanner(src, nil, scanner.WithContinueOnFileError())
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	err := s.Start(t.Context())
	require.ErrorIs(t, err, parseErr)
	assert.Equal(t, []string{"k1"}, src.events())
	assert.Equal(t, int64(5), s.Cursor("b.log"))
	assert.Equal(t, int64(0), s.Cursor("a.log"))
}

func TestScanner_DiscoveryFailure(t *testing.T) {
	src := newFakeSource()
	findErr := errors.New("permission denied")
	src.findErr = findErr
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	err := s.Start(t.Context())
	require.ErrorIs(t, err, findErr)
	require.ErrorContains(t, err, domain.ErrDiscoveryFailed.Error())
}

func TestScanner_WatchesDiscoveredFilesAndPrunes(t *testing.T) {
	src := newFakeSource("a.log", "b.log")
	w := newFakeWatcher()
	s := newScanner(src, w)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	assert.Equal(t, []string{"a.log", "b.log"}, s.WatchedFiles())

	require.NoError(t, s.Scan(t.Context()))
	assert.Equal(t, 2, w.watchCount(), "existing subscriptions are reused")

	src.set(func(f *fakeSource) { f.files = []string{"a.log"} })
	require.NoError(t, s.Scan(t.Context()))

	assert.Equal(t, []string{"a.log"}, s.WatchedFiles())
	assert.Equal(t, []string{"b.log"}, w.cancelledPaths())
}

func TestScanner_AutoPruneDisabled(t *testing.T) {
	src := newFakeSource("a.log", "b.log")
	w := newFakeWatcher()
	s := newScanner(src, w, scanner.WithAutoPrune(false))
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	src.set(func(f *fakeSource) { f.files = []string{"a.log"} })
	require.NoError(t, s.Scan(t.Context()))
	assert.Equal(t, []string{"a.log", "b.log"}, s.WatchedFiles())

	s.PruneWatches([]string{"a.log"})
	assert.Equal(t, []string{"a.log"}, s.WatchedFiles())
	assert.Equal(t, []string{"b.log"}, w.cancelledPaths())
}

func TestScanner_WatchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := newFakeSource("a.log")
	w := mocks.NewMockFileWatcher(ctrl)
	watchErr := errors.New("too many open files")
	w.EXPECT().Watch("a.log", gomock.Any()).Return(nil, watchErr)
	s := newScanner(src, w)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	err := s.Start(t.Context())
	require.ErrorIs(t, err, watchErr)
	require.ErrorContains(t, err, domain.ErrWatchFailed.Error())
	assert.Empty(t, src.parsedFrom("a.log"))
}

func TestScanner_ChangeNotificationTriggersPass(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		src.results["a.log"] = result(10, "k1")
		w := newFakeWatcher()
		s := newScanner(src, w)

		require.NoError(t, s.Start(t.Context()))
		require.Equal(t, 1, src.passCount())

		src.set(func(f *fakeSource) { f.results["a.log"] = result(20, "k1", "k2") })
		w.fire("a.log")
		synctest.Wait()

		assert.Equal(t, 2, src.passCount())
		assert.Equal(t, []string{"k1", "k2"}, src.events())
		require.NoError(t, s.Cleanup(t.Context()))
	})
}

func TestScanner_PeriodicFallback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		s := scanner.New[string](src, nil, scanner.WithInterval(time.Second))

		require.NoError(t, s.Start(t.Context()))
		time.Sleep(3*time.Second + 500*time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 4, src.passCount())

		require.NoError(t, s.Cleanup(t.Context()))
		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 4, src.passCount())
	})
}

func TestScanner_NoOverlap(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		s := newScanner(src, nil)
		require.NoError(t, s.Start(t.Context()))

		gate := make(chan struct{})
		src.set(func(f *fakeSource) { f.gate = gate })

		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				assert.NoError(t, s.Scan(t.Context()))
			})
		}
		synctest.Wait()
		close(gate)
		wg.Wait()

		src.mu.Lock()
		assert.Equal(t, 1, src.maxActive)
		src.mu.Unlock()
		assert.Equal(t, 3, src.passCount(), "initial pass, one run, one coalesced follow-up")
		require.NoError(t, s.Cleanup(t.Context()))
	})
}

func TestScanner_ConcurrentScanJoinsInFlightPass(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		src.results["a.log"] = result(10, "k1")
		gate := make(chan struct{})
		src.gate = gate
		s := newScanner(src, nil)

		errs := make(chan error, 2)
		go func() { errs <- s.ScanDirect(t.Context()) }()
		synctest.Wait()
		go func() { errs <- s.ScanDirect(t.Context()) }()
		synctest.Wait()

		close(gate)
		require.NoError(t, <-errs)
		require.NoError(t, <-errs)

		assert.Equal(t, 1, src.passCount())
		assert.Equal(t, []string{"k1"}, src.events())
		require.NoError(t, s.Cleanup(t.Context()))
	})
}

func TestScanner_CleanupAwaitsInFlightPass(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		w := newFakeWatcher()
		s := newScanner(src, w)
		require.NoError(t, s.Start(t.Context()))

		gate := make(chan struct{})
		src.set(func(f *fakeSource) {
			f.gate = gate
			f.results["a.log"] = result(30, "k9")
		})
		s.Invalidate()
		synctest.Wait()

		var cleaned atomic.Bool
		go func() {
			assert.NoError(t, s.Cleanup(context.Background()))
			cleaned.Store(true)
		}()
		synctest.Wait()
		assert.False(t, cleaned.Load())
		assert.Empty(t, s.WatchedFiles())

		close(gate)
		synctest.Wait()
		assert.True(t, cleaned.Load())
		assert.Equal(t, []string{"a.log"}, w.cancelledPaths())
	})
}

func TestScanner_CleanupSuppressesInFlightFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		var mu sync.Mutex
		var reported []error
		s := newScanner(src, nil, scanner.WithErrorHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		}))
		require.NoError(t, s.Start(t.Context()))

		gate := make(chan struct{})
		src.set(func(f *fakeSource) {
			f.gate = gate
			f.parseErr["a.log"] = errors.New("boom")
		})
		s.Invalidate()
		synctest.Wait()

		done := make(chan error, 1)
		go func() { done <- s.Cleanup(context.Background()) }()
		synctest.Wait()
		close(gate)
		require.NoError(t, <-done)

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, reported, 1)
	})
}

func TestScanner_LifecycleMisuse(t *testing.T) {
	src := newFakeSource()
	s := newScanner(src, nil)

	require.NoError(t, s.Start(t.Context()))
	require.ErrorIs(t, s.Start(t.Context()), domain.ErrAlreadyStarted)

	require.NoError(t, s.Cleanup(t.Context()))
	require.NoError(t, s.Cleanup(t.Context()))
	assert.True(t, s.Stopped())

	require.ErrorIs(t, s.Start(t.Context()), domain.ErrScannerStopped)
	require.ErrorIs(t, s.Scan(t.Context()), domain.ErrSchedulerStopped)
}

func TestScanner_BackgroundFailureGoesToHandler(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := newFakeSource("a.log")
		reported := make(chan error, 4)
		s := newScanner(src, nil, scanner.WithErrorHandler(func(err error) { reported <- err }))
		require.NoError(t, s.Start(t.Context()))

		src.set(func(f *fakeSource) { f.findErr = errors.New("gone") })
		s.Invalidate()
		synctest.Wait()

		require.Len(t, reported, 1)
		assert.ErrorContains(t, <-reported, domain.ErrDiscoveryFailed.Error())
		require.NoError(t, s.Cleanup(t.Context()))
	})
}

func TestScanner_DefaultErrorHandlerLogs(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		logger := mocks.NewMockLogger(ctrl)
		logger.EXPECT().Debug(gomock.Any()).AnyTimes()
		logger.EXPECT().Error(gomock.Any()).Times(1)

		src := newFakeSource("a.log")
		s := newScanner(src, nil, scanner.WithLogger(logger))
		require.NoError(t, s.Start(t.Context()))

		src.set(func(f *fakeSource) { f.findErr = errors.New("gone") })
		s.Invalidate()
		synctest.Wait()
		require.NoError(t, s.Cleanup(t.Context()))
	})
}

// gatedSource pauses scanning and restricts watches to .jsonl files.
type gatedSource struct {
	*fakeSource
	paused atomic.Bool
}

func (g *gatedSource) ShouldScan() bool { return !g.paused.Load() }

func (g *gatedSource) ShouldWatch(path string) bool { return path != "skip.log" }

func TestScanner_ScanGateAndWatchFilter(t *testing.T) {
	src := &gatedSource{fakeSource: newFakeSource("a.log", "skip.log")}
	src.results["skip.log"] = result(3, "s1")
	w := newFakeWatcher()
	s := newScanner(src, w)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
	assert.Equal(t, []string{"a.log"}, s.WatchedFiles())
	assert.Equal(t, []string{"s1"}, src.events(), "unwatched files are still scanned")

	src.paused.Store(true)
	require.NoError(t, s.Scan(t.Context()))
	assert.Equal(t, 1, src.passCount())

	src.paused.Store(false)
	require.NoError(t, s.Scan(t.Context()))
	assert.Equal(t, 2, src.passCount())
}

// hookedSource records hook calls and warm-starts from a checkpoint.
type hookedSource struct {
	*fakeSource
	seed  domain.Checkpoint
	calls []string
	after func(scanner.Control) error
}

func (h *hookedSource) Initialize(_ context.Context, c scanner.Control) error {
	h.calls = append(h.calls, "init")
	c.SeedKeys(slices.Values(h.seed.Keys))
	for path, cursor := range h.seed.Cursors {
		c.SetCursor(path, cursor)
	}
	return nil
}

func (h *hookedSource) BeforeScan(context.Context, scanner.Control) error {
	h.calls = append(h.calls, "before")
	return nil
}

func (h *hookedSource) AfterScan(_ context.Context, c scanner.Control) error {
	h.calls = append(h.calls, "after")
	if h.after != nil {
		return h.after(c)
	}
	return nil
}

func TestScanner_HooksWarmStart(t *testing.T) {
	seed := domain.NewCheckpoint()
	seed.Cursors["a.log"] = 40
	seed.Keys = []string{"k1"}

	src := &hookedSource{fakeSource: newFakeSource("a.log"), seed: seed}
	src.results["a.log"] = result(80, "k1", "k2")

	var snap domain.Checkpoint
	src.after = func(c scanner.Control) error {
		snap = c.Snapshot()
		return nil
	}

	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))

	assert.Equal(t, []string{"init", "before", "after"}, src.calls)
	assert.Equal(t, []int64{40}, src.parsedFrom("a.log"))
	assert.Equal(t, []string{"k2"}, src.events())

	assert.Equal(t, domain.CheckpointVersion, snap.Version)
	assert.Equal(t, map[string]int64{"a.log": 80}, snap.Cursors)
	assert.ElementsMatch(t, []string{"k1", "k2"}, snap.Keys)
}

func TestScanner_AfterScanFailure(t *testing.T) {
	src := &hookedSource{fakeSource: newFakeSource("a.log")}
	hookErr := errors.New("checkpoint disk full")
	src.after = func(scanner.Control) error { return hookErr }
	s := newScanner(src, nil)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	err := s.Start(t.Context())
	require.ErrorIs(t, err, hookErr)
	require.ErrorContains(t, err, domain.ErrHookFailed.Error())
}

func TestScanner_MaxKeysEvictsLeastRecentlySeen(t *testing.T) {
	src := newFakeSource("a.log")
	src.results["a.log"] = result(10, "k1", "k2")
	s := newScanner(src, nil, scanner.WithMaxKeys(2))
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))

	src.set(func(f *fakeSource) { f.results["a.log"] = result(20, "k1", "k3") })
	require.NoError(t, s.Scan(t.Context()))

	assert.Equal(t, 2, s.KeyCount())
	assert.Equal(t, []string{"k1", "k3"}, s.Snapshot().Keys)
	assert.Equal(t, []string{"k1", "k2", "k3"}, src.events())
}

func TestScanner_Tracing(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)

	passthrough := func(ctx context.Context, _ string) (context.Context, ports.Span) {
		return ctx, span
	}
	tracer.EXPECT().Start(gomock.Any(), "scan.pass").DoAndReturn(passthrough).Times(1)
	tracer.EXPECT().Start(gomock.Any(), "scan.file").DoAndReturn(passthrough).Times(2)
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().End().Times(3)

	src := newFakeSource("a.log", "b.log")
	s := newScanner(src, nil, scanner.WithTracer(tracer))
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })

	require.NoError(t, s.Start(t.Context()))
}
