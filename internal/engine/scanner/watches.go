package scanner

import (
	"sync"

	"go.trai.ch/sift/internal/core/ports"
)

// watchRegistry owns one change subscription per file path.
type watchRegistry struct {
	watcher  ports.FileWatcher
	onChange func()

	mu      sync.Mutex
	cancels map[string]ports.CancelFunc
	closed  bool
}

func newWatchRegistry(watcher ports.FileWatcher, onChange func()) *watchRegistry {
	return &watchRegistry{
		watcher:  watcher,
		onChange: onChange,
		cancels:  make(map[string]ports.CancelFunc),
	}
}

// ensure subscribes to path unless a subscription already exists.
// After close it does nothing, so no subscription outlives shutdown.
func (r *watchRegistry) ensure(path string) error {
	if r.watcher == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if _, ok := r.cancels[path]; ok {
		return nil
	}

	cancel, err := r.watcher.Watch(path, r.onChange)
	if err != nil {
		return err
	}
	r.cancels[path] = cancel
	return nil
}

// prune cancels every subscription whose path is not in keep.
func (r *watchRegistry) prune(keep []string) []string {
	set := keepSet(keep)

	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for path, cancel := range r.cancels {
		if _, ok := set[path]; ok {
			continue
		}
		cancel()
		delete(r.cancels, path)
		pruned = append(pruned, path)
	}
	return pruned
}

func (r *watchRegistry) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.cancels)
}

// close cancels and clears every subscription.
func (r *watchRegistry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for path, cancel := range r.cancels {
		cancel()
		delete(r.cancels, path)
	}
}
