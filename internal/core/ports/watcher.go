package ports

// CancelFunc releases a change subscription. It is safe to call more than once.
type CancelFunc func()

// FileWatcher subscribes to change notifications for individual files.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type FileWatcher interface {
	// Watch calls onChange at least once after each modification of path.
	// Coalesced or duplicate notifications are acceptable.
	Watch(path string, onChange func()) (CancelFunc, error)
	// Close releases every subscription and the underlying resources.
	Close() error
}
