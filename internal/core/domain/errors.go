package domain

import "go.trai.ch/zerr"

var (
	// ErrDiscoveryFailed is returned when the source cannot list its session files.
	ErrDiscoveryFailed = zerr.New("failed to discover session files")

	// ErrParseFailed is returned when a session file cannot be parsed from its cursor.
	ErrParseFailed = zerr.New("failed to parse session file")

	// ErrConsumerFailed is returned when the consumer rejects a batch of new events.
	// The batch is not committed and will be offered again on the next pass.
	ErrConsumerFailed = zerr.New("consumer failed to handle scanned events")

	// ErrWatchFailed is returned when a change subscription cannot be created for a file.
	ErrWatchFailed = zerr.New("failed to watch session file")

	// ErrHookFailed is returned when an initialize, before-scan or after-scan hook fails.
	ErrHookFailed = zerr.New("scanner hook failed")

	// ErrAlreadyStarted is returned when Start is called on a running scanner.
	ErrAlreadyStarted = zerr.New("scanner already started")

	// ErrScannerStopped is returned when a stopped scanner is asked to start again.
	ErrScannerStopped = zerr.New("scanner is stopped")

	// ErrSchedulerStopped is returned when work is requested from a stopped scheduler.
	ErrSchedulerStopped = zerr.New("scheduler is stopped")

	// ErrWatcherClosed is returned when a subscription is requested from a closed file watcher.
	ErrWatcherClosed = zerr.New("file watcher is closed")

	// ErrInvalidInterval is returned when the fallback interval is not positive.
	ErrInvalidInterval = zerr.New("scan interval must be positive")

	// ErrInvalidMaxKeys is returned when the dedup key limit is negative.
	ErrInvalidMaxKeys = zerr.New("max_keys must not be negative")

	// ErrNoRoots is returned when no session roots are configured.
	ErrNoRoots = zerr.New("no session roots configured")

	// ErrInvalidPattern is returned when an include or exclude glob is malformed.
	ErrInvalidPattern = zerr.New("invalid file pattern")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrCheckpointReadFailed is returned when the checkpoint cannot be read.
	ErrCheckpointReadFailed = zerr.New("failed to read checkpoint")

	// ErrCheckpointUnmarshalFailed is returned when the checkpoint cannot be decoded.
	ErrCheckpointUnmarshalFailed = zerr.New("failed to unmarshal checkpoint")

	// ErrCheckpointWriteFailed is returned when the checkpoint cannot be written.
	ErrCheckpointWriteFailed = zerr.New("failed to write checkpoint")

	// ErrCheckpointVersion is returned when the checkpoint was written by an incompatible version.
	ErrCheckpointVersion = zerr.New("unsupported checkpoint version")

	// ErrSinkWriteFailed is returned when delivered events cannot be written to the output.
	ErrSinkWriteFailed = zerr.New("failed to write events to sink")

	// ErrStateDirFailed is returned when the state directory cannot be created or modified.
	ErrStateDirFailed = zerr.New("failed to prepare state directory")
)
