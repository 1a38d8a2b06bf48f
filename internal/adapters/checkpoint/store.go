// Package checkpoint persists scanner progress in the state directory.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Store implements ports.CheckpointStore with a single JSON file.
type Store struct {
	path string
}

// NewStore creates a store for the checkpoint file inside stateDir.
func NewStore(stateDir string) *Store {
	return &Store{path: domain.CheckpointPath(stateDir)}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. It returns nil, nil when none has been saved.
func (s *Store) Load(_ context.Context) (*domain.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCheckpointReadFailed.Error()), "path", s.path)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCheckpointUnmarshalFailed.Error()), "path", s.path)
	}
	if cp.Version != domain.CheckpointVersion {
		return nil, zerr.With(domain.ErrCheckpointVersion, "version", cp.Version)
	}
	if cp.Cursors == nil {
		cp.Cursors = make(map[string]int64)
	}

	return &cp, nil
}

// Save replaces the checkpoint. The file is written to a temporary name and
// renamed, so a crash never leaves a half-written checkpoint behind.
func (s *Store) Save(ctx context.Context, cp domain.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCheckpointWriteFailed.Error())
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStateDirFailed.Error()), "path", dir)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCheckpointWriteFailed.Error()), "path", s.path)
	}
	return nil
}

// Reset removes the checkpoint.
func (s *Store) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrCheckpointWriteFailed.Error()), "path", s.path)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, domain.PrivateFilePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
