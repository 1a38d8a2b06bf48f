package checkpoint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

// PauseMarker is a file whose presence pauses scanning. Being a file, it can
// be toggled by another process while a watcher is running.
type PauseMarker struct {
	path string
}

// NewPauseMarker creates the marker for stateDir.
func NewPauseMarker(stateDir string) *PauseMarker {
	return &PauseMarker{path: domain.PausePath(stateDir)}
}

// Paused reports whether the marker exists.
func (m *PauseMarker) Paused() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Pause creates the marker.
func (m *PauseMarker) Pause() error {
	if err := os.MkdirAll(filepath.Dir(m.path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStateDirFailed.Error()), "path", m.path)
	}
	if err := os.WriteFile(m.path, nil, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStateDirFailed.Error()), "path", m.path)
	}
	return nil
}

// Resume removes the marker.
func (m *PauseMarker) Resume() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrStateDirFailed.Error()), "path", m.path)
	}
	return nil
}
