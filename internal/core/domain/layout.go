package domain

import "path/filepath"

const (
	// StateDirName is the name of the scanner state directory.
	StateDirName = ".sift"

	// CheckpointFileName is the name of the checkpoint file inside the state directory.
	CheckpointFileName = "checkpoint.json"

	// PauseFileName is the marker file that pauses scanning while present.
	PauseFileName = "paused"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "sift.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultStatePath returns the default state directory.
func DefaultStatePath() string {
	return StateDirName
}

// CheckpointPath returns the checkpoint location inside stateDir.
func CheckpointPath(stateDir string) string {
	return filepath.Join(stateDir, CheckpointFileName)
}

// PausePath returns the pause marker location inside stateDir.
func PausePath(stateDir string) string {
	return filepath.Join(stateDir, PauseFileName)
}
