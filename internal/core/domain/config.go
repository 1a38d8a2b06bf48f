package domain

import "time"

const (
	// DefaultInterval is the default periodic fallback rescan interval.
	DefaultInterval = 5 * time.Second

	// DefaultDebounce is the default window used to coalesce raw file events.
	DefaultDebounce = 50 * time.Millisecond

	// DefaultInclude is the default glob matched against session file names.
	DefaultInclude = "*.jsonl"
)

// Config is the validated runtime configuration.
type Config struct {
	// Roots are the directories searched for session files.
	Roots []string
	// Include and Exclude are globs matched against file base names.
	Include []string
	Exclude []string
	// Interval is the periodic fallback rescan cadence.
	Interval time.Duration
	// Debounce coalesces bursts of change notifications for one file.
	Debounce time.Duration
	// StateDir holds the checkpoint and the pause marker.
	StateDir string
	// Watch enables per-file change subscriptions.
	Watch bool
	// MaxKeys bounds the dedup index. Zero means unbounded.
	MaxKeys int
	// ContinueOnError isolates per-file failures instead of aborting the pass.
	ContinueOnError bool
	// Output is the path events are written to. Empty or "-" means stdout.
	Output string
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Include:  []string{DefaultInclude},
		Interval: DefaultInterval,
		Debounce: DefaultDebounce,
		StateDir: DefaultStatePath(),
		Watch:    true,
	}
}
