package scanner_test

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
)

// fakeSource serves scripted parse results. Events are their own keys.
type fakeSource struct {
	mu         sync.Mutex
	files      []string
	findErr    error
	results    map[string]domain.ScanResult[string]
	parseErr   map[string]error
	consumeErr map[string]error
	gate       chan struct{}

	passes    int
	cursors   map[string][]int64
	delivered []domain.ScanStats[string]
	active    int
	maxActive int
}

func newFakeSource(files ...string) *fakeSource {
	return &fakeSource{
		files:      files,
		results:    make(map[string]domain.ScanResult[string]),
		parseErr:   make(map[string]error),
		consumeErr: make(map[string]error),
		cursors:    make(map[string][]int64),
	}
}

func result(next int64, keys ...string) domain.ScanResult[string] {
	entries := make([]domain.ScanEntry[string], 0, len(keys))
	for i, k := range keys {
		entries = append(entries, domain.ScanEntry[string]{Event: k, Position: int64(i), HasPosition: true})
	}
	return domain.ScanResult[string]{Entries: entries, NextCursor: next}
}

func (f *fakeSource) FindFiles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return slices.Clone(f.files), nil
}

func (f *fakeSource) ParseFile(_ context.Context, path string, cursor int64) (domain.ScanResult[string], error) {
	f.mu.Lock()
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.cursors[path] = append(f.cursors[path], cursor)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if err := f.parseErr[path]; err != nil {
		return domain.ScanResult[string]{}, err
	}
	return f.results[path], nil
}

func (f *fakeSource) KeyOf(event string, _ domain.KeyContext) string {
	return event
}

func (f *fakeSource) OnFileScanned(_ context.Context, stats domain.ScanStats[string]) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeErr[stats.Path]; err != nil {
		return err
	}
	f.delivered = append(f.delivered, stats)
	return nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) passCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passes
}

func (f *fakeSource) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.delivered {
		out = append(out, s.Events...)
	}
	return out
}

func (f *fakeSource) lastStats() domain.ScanStats[string] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[len(f.delivered)-1]
}

func (f *fakeSource) parsedFrom(path string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cursors[path])
}

// fakeWatcher records subscriptions and lets tests fire change notifications.
type fakeWatcher struct {
	mu        sync.Mutex
	callbacks map[string]func()
	watched   []string
	cancelled []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{callbacks: make(map[string]func())}
}

func (w *fakeWatcher) Watch(path string, onChange func()) (ports.CancelFunc, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks[path] = onChange
	w.watched = append(w.watched, path)
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.callbacks, path)
		w.cancelled = append(w.cancelled, path)
	}, nil
}

func (w *fakeWatcher) Close() error { return nil }

func (w *fakeWatcher) fire(path string) {
	w.mu.Lock()
	cb := w.callbacks[path]
	w.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (w *fakeWatcher) cancelledPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(slices.Values(w.cancelled))
}

func (w *fakeWatcher) watchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}
