package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/checkpoint"
	"go.trai.ch/sift/internal/core/domain"
)

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	stateDir := filepath.Join(t.TempDir(), "state")
	store := checkpoint.NewStore(stateDir)

	cp := domain.NewCheckpoint()
	cp.Cursors["/logs/a.jsonl"] = 120
	cp.Keys = []string{"id:k1", "id:k2"}
	cp.SavedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(context.Background(), cp))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cp.Cursors, got.Cursors)
	assert.Equal(t, cp.Keys, got.Keys)
	assert.True(t, cp.SavedAt.Equal(got.SavedAt))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.PrivateFilePerm), info.Mode().Perm())

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	got, err := checkpoint.NewStore(t.TempDir()).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LoadCorrupt(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(domain.CheckpointPath(stateDir), []byte("{not json"), domain.FilePerm))

	_, err := checkpoint.NewStore(stateDir).Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCheckpointUnmarshalFailed.Error())
}

func TestStore_LoadWrongVersion(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(domain.CheckpointPath(stateDir), []byte(`{"version":99}`), domain.FilePerm))

	_, err := checkpoint.NewStore(stateDir).Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCheckpointVersion.Error())
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	store := checkpoint.NewStore(t.TempDir())
	require.NoError(t, store.Reset(context.Background()), "resetting nothing is fine")

	require.NoError(t, store.Save(context.Background(), domain.NewCheckpoint()))
	require.NoError(t, store.Reset(context.Background()))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := checkpoint.NewStore(t.TempDir()).Save(ctx, domain.NewCheckpoint())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPauseMarker(t *testing.T) {
	t.Parallel()

	marker := checkpoint.NewPauseMarker(filepath.Join(t.TempDir(), "state"))
	assert.False(t, marker.Paused())

	require.NoError(t, marker.Pause())
	assert.True(t, marker.Paused())
	require.NoError(t, marker.Pause())

	require.NoError(t, marker.Resume())
	assert.False(t, marker.Paused())
	require.NoError(t, marker.Resume())
}
