package domain

import (
	"maps"
	"slices"
	"time"
)

// CheckpointVersion is the current on-disk checkpoint format.
const CheckpointVersion = 1

// Checkpoint is a snapshot of scanner progress used for warm starts.
type Checkpoint struct {
	Version int              `json:"version"`
	Cursors map[string]int64 `json:"cursors"`
	Keys    []string         `json:"keys"`
	SavedAt time.Time        `json:"saved_at"`
}

// NewCheckpoint returns an empty checkpoint of the current version.
func NewCheckpoint() Checkpoint {
	return Checkpoint{
		Version: CheckpointVersion,
		Cursors: make(map[string]int64),
	}
}

// Paths returns the checkpointed file paths in sorted order.
func (c Checkpoint) Paths() []string {
	return slices.Sorted(maps.Keys(c.Cursors))
}
