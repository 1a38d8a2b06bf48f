package scanner

import (
	"context"
	"iter"

	"go.trai.ch/sift/internal/core/domain"
)

// Source supplies everything format-specific: which files exist, how to parse
// them from a cursor, how to identify an event and what to do with new events.
type Source[E any] interface {
	// FindFiles returns the current ordered set of candidate files.
	FindFiles(ctx context.Context) ([]string, error)
	// ParseFile returns the entries found since cursor and the cursor that marks them consumed.
	ParseFile(ctx context.Context, path string, cursor int64) (domain.ScanResult[E], error)
	// KeyOf derives the identity of an event. It must be pure and deterministic.
	// Entries of one parse that share a key are delivered once, as the first of them.
	KeyOf(event E, kc domain.KeyContext) string
	// OnFileScanned receives the new events of one file, at most one per key;
	// stats.Skipped counts both earlier deliveries and repeats within the batch.
	// Returning an error leaves the file's cursor and keys uncommitted.
	OnFileScanned(ctx context.Context, stats domain.ScanStats[E]) error
}

// Initializer is implemented by sources that prepare state before the first pass.
type Initializer interface {
	Initialize(ctx context.Context, c Control) error
}

// BeforeScanner is implemented by sources that run work at the start of every pass.
type BeforeScanner interface {
	BeforeScan(ctx context.Context, c Control) error
}

// AfterScanner is implemented by sources that run work after every completed pass.
// A pass cut short by a failure or a stop does not reach it, although the files
// it finished are already committed.
type AfterScanner interface {
	AfterScan(ctx context.Context, c Control) error
}

// ScanGate is implemented by sources that can pause scanning without tearing down state.
type ScanGate interface {
	ShouldScan() bool
}

// WatchFilter is implemented by sources that only want change subscriptions for some files.
type WatchFilter interface {
	ShouldWatch(path string) bool
}

// Control is the view of the scanner handed to source hooks.
type Control interface {
	// SeedKeys marks keys as already delivered, e.g. from a persisted checkpoint.
	SeedKeys(keys iter.Seq[string])
	// Cursor returns the committed cursor for path, 0 if never scanned.
	Cursor(path string) int64
	// SetCursor overrides the committed cursor for path.
	SetCursor(path string, cursor int64)
	// WatchedFiles returns the paths with a live change subscription.
	WatchedFiles() []string
	// PruneWatches cancels every subscription whose path is not in keep.
	PruneWatches(keep []string)
	// Invalidate requests a rescan.
	Invalidate()
	// Snapshot captures cursors and delivered keys for persistence.
	Snapshot() domain.Checkpoint
}
