package ports

import (
	"context"

	"go.trai.ch/sift/internal/core/domain"
)

// CheckpointStore persists scanner progress between runs.
//
//go:generate mockgen -source=checkpoint.go -destination=mocks/mock_checkpoint.go -package=mocks
type CheckpointStore interface {
	// Load returns the last saved checkpoint.
	// Returns nil, nil if no checkpoint has been saved yet.
	Load(ctx context.Context) (*domain.Checkpoint, error)
	// Save replaces the stored checkpoint.
	Save(ctx context.Context, cp domain.Checkpoint) error
	// Reset removes the stored checkpoint.
	Reset(ctx context.Context) error
}
