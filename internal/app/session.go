package app

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.trai.ch/sift/internal/adapters/jsonl"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/engine/scanner"
)

// pauseState reports whether scanning is currently paused.
type pauseState interface {
	Paused() bool
}

// sessionSource couples the JSONL format with event delivery and
// checkpointing. It restores the checkpoint before the first pass and saves
// it after every completed pass. Files committed by a pass that stopped early
// are saved at the start of the next pass or by Flush.
type sessionSource struct {
	*jsonl.Source

	sink   ports.EventSink
	store  ports.CheckpointStore
	pause  pauseState
	logger ports.Logger
	now    func() time.Time

	files     atomic.Int64
	delivered atomic.Int64
	// unsaved is set once a file is committed and cleared by a checkpoint save.
	unsaved atomic.Bool
}

var (
	_ scanner.Source[domain.SessionEvent] = (*sessionSource)(nil)
	_ scanner.Initializer                 = (*sessionSource)(nil)
	_ scanner.BeforeScanner               = (*sessionSource)(nil)
	_ scanner.AfterScanner                = (*sessionSource)(nil)
	_ scanner.ScanGate                    = (*sessionSource)(nil)
)

// OnFileScanned hands the new events of one file to the sink.
func (s *sessionSource) OnFileScanned(ctx context.Context, stats domain.ScanStats[domain.SessionEvent]) error {
	if err := s.sink.Deliver(ctx, stats); err != nil {
		return err
	}
	s.unsaved.Store(true)
	if stats.New > 0 {
		s.files.Add(1)
		s.delivered.Add(int64(stats.New))
	}
	return nil
}

// Initialize restores cursors and delivered keys from the stored checkpoint.
func (s *sessionSource) Initialize(ctx context.Context, c scanner.Control) error {
	cp, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if cp == nil {
		s.logger.Debug("no checkpoint found, starting cold")
		return nil
	}

	c.SeedKeys(slices.Values(cp.Keys))
	for path, cursor := range cp.Cursors {
		c.SetCursor(path, cursor)
	}
	s.logger.Debug(fmt.Sprintf("restored checkpoint: %d file(s), %d key(s)", len(cp.Cursors), len(cp.Keys)))
	return nil
}

// BeforeScan saves what an earlier pass committed but never saved because
// it stopped early. A failed save is logged and the pass goes on.
func (s *sessionSource) BeforeScan(ctx context.Context, c scanner.Control) error {
	if err := s.Flush(ctx, c); err != nil {
		s.logger.Warn("failed to save checkpoint: " + err.Error())
	}
	return nil
}

// AfterScan persists the scanner's progress.
func (s *sessionSource) AfterScan(ctx context.Context, c scanner.Control) error {
	return s.save(ctx, c)
}

// Flush saves the checkpoint if a file was committed since the last save.
func (s *sessionSource) Flush(ctx context.Context, c scanner.Control) error {
	if !s.unsaved.Load() {
		return nil
	}
	return s.save(ctx, c)
}

func (s *sessionSource) save(ctx context.Context, c scanner.Control) error {
	s.unsaved.Store(false)
	cp := c.Snapshot()
	cp.SavedAt = s.now().UTC()
	if err := s.store.Save(ctx, cp); err != nil {
		s.unsaved.Store(true)
		return err
	}
	return nil
}

// ShouldScan is false while the pause marker exists.
func (s *sessionSource) ShouldScan() bool {
	return s.pause == nil || !s.pause.Paused()
}

// Totals returns how many files contributed new events and how many events were delivered.
func (s *sessionSource) Totals() (files, events int64) {
	return s.files.Load(), s.delivered.Load()
}
