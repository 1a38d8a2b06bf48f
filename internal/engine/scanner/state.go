package scanner

import (
	"container/list"
	"iter"
	"maps"
	"slices"
	"sync"
)

// cursorTable maps a file path to its last committed cursor.
type cursorTable struct {
	mu      sync.RWMutex
	cursors map[string]int64
}

func newCursorTable() *cursorTable {
	return &cursorTable{cursors: make(map[string]int64)}
}

func (t *cursorTable) get(path string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursors[path]
}

func (t *cursorTable) set(path string, cursor int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors[path] = cursor
}

func (t *cursorTable) snapshot() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.cursors)
}

// keySet is the dedup index of delivered event keys.
//
// With limit 0 it only grows. With a positive limit the least recently seen
// keys are evicted once the limit is exceeded.
type keySet struct {
	mu    sync.Mutex
	limit int
	index map[string]*list.Element
	order *list.List // front is most recently seen
}

func newKeySet(limit int) *keySet {
	return &keySet{
		limit: limit,
		index: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (k *keySet) has(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.index[key]
	return ok
}

// touch records key as seen again. Seen keys are safe to re-record.
func (k *keySet) touch(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.addLocked(key)
}

func (k *keySet) add(keys iter.Seq[string]) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key := range keys {
		k.addLocked(key)
	}
}

func (k *keySet) addLocked(key string) {
	if el, ok := k.index[key]; ok {
		k.order.MoveToFront(el)
		return
	}
	k.index[key] = k.order.PushFront(key)

	if k.limit <= 0 {
		return
	}
	for k.order.Len() > k.limit {
		oldest := k.order.Back()
		k.order.Remove(oldest)
		delete(k.index, oldest.Value.(string))
	}
}

func (k *keySet) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.index)
}

// snapshot returns the keys from least to most recently seen.
func (k *keySet) snapshot() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, k.order.Len())
	for el := k.order.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(string))
	}
	return keys
}

// keepSet builds a lookup set from paths.
func keepSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
