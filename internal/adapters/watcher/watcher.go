// Package watcher implements per-file change subscriptions on top of fsnotify.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileWatcher = (*Watcher)(nil)

// Watcher delivers change notifications for individual files.
//
// fsnotify is most reliable at directory granularity, so the parent directory
// of every subscribed file is watched and events are filtered by path.
// Notifications are debounced and may be duplicated; callers must treat them
// as hints.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	logger    ports.Logger
	debouncer *Debouncer
	done      chan struct{}

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]func()
	dirs   map[string]int
	closed bool
}

// NewWatcher creates a watcher whose notifications are debounced by window.
func NewWatcher(logger ports.Logger, window time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}

	w := &Watcher{
		fsWatcher: fsw,
		logger:    logger,
		done:      make(chan struct{}),
		subs:      make(map[string]map[uint64]func()),
		dirs:      make(map[string]int),
	}
	w.debouncer = NewDebouncer(window, w.notify)

	go w.processEvents()

	return w, nil
}

// Watch subscribes onChange to changes of path.
// The returned cancel func is idempotent.
func (w *Watcher) Watch(path string, onChange func()) (ports.CancelFunc, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, domain.ErrWatcherClosed
	}

	if w.dirs[dir] == 0 {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "path", path)
		}
	}
	w.dirs[dir]++

	w.nextID++
	id := w.nextID
	if w.subs[path] == nil {
		w.subs[path] = make(map[uint64]func())
	}
	w.subs[path][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() { w.unsubscribe(path, dir, id) })
	}, nil
}

// Close stops all notifications and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	clear(w.subs)
	clear(w.dirs)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	<-w.done
	return err
}

func (w *Watcher) unsubscribe(path, dir string, id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	delete(w.subs[path], id)
	if len(w.subs[path]) == 0 {
		delete(w.subs, path)
	}

	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	// The directory may already be gone.
	_ = w.fsWatcher.Remove(dir)
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			path := filepath.Clean(event.Name)
			if w.subscribed(path) {
				w.debouncer.Add(path)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("watcher: file system error: %v", err))
		}
	}
}

// relevant reports whether an event can mean new content or a replaced file.
func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}

func (w *Watcher) subscribed(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[path]) > 0
}

// notify runs the callbacks subscribed to paths.
func (w *Watcher) notify(paths []string) {
	var callbacks []func()

	w.mu.Lock()
	for _, path := range paths {
		for _, cb := range w.subs[path] {
			callbacks = append(callbacks, cb)
		}
	}
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}
