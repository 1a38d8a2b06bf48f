package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

// pass is the handle of an in-flight scan.
type pass struct {
	done chan struct{}
	err  error
}

// scan runs one pass, or joins the pass already in flight and returns its outcome.
func (s *Scanner[E]) scan(ctx context.Context) error {
	s.mu.Lock()
	if p := s.inFlight; p != nil {
		s.mu.Unlock()
		select {
		case <-p.done:
			return p.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p := &pass{done: make(chan struct{})}
	s.inFlight = p
	s.mu.Unlock()

	p.err = s.runPass(ctx)

	s.mu.Lock()
	s.inFlight = nil
	s.mu.Unlock()
	close(p.done)

	return p.err
}

func (s *Scanner[E]) runPass(ctx context.Context) (err error) {
	if !s.active() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := s.opts.tracer.Start(ctx, "scan.pass")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if h, ok := s.source.(BeforeScanner); ok {
		if err := h.BeforeScan(ctx, s); err != nil {
			return wrapHook(err)
		}
	}

	files, err := s.source.FindFiles(ctx)
	if err != nil {
		return zerr.Wrap(err, domain.ErrDiscoveryFailed.Error())
	}
	span.SetAttribute("scan.files", len(files))

	if s.opts.autoPrune {
		keep := make([]string, 0, len(files))
		for _, path := range files {
			if s.shouldWatch(path) {
				keep = append(keep, path)
			}
		}
		for _, path := range s.watches.prune(keep) {
			s.opts.logger.Debug("stopped watching " + path)
		}
	}

	var errs []error
	for _, path := range files {
		if !s.active() {
			return errors.Join(errs...)
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		if err := s.scanFile(ctx, path); err != nil {
			if !s.opts.continueOnError {
				return err
			}
			s.opts.logger.Warn(err.Error())
			errs = append(errs, err)
		}
	}

	if h, ok := s.source.(AfterScanner); ok {
		if err := h.AfterScan(ctx, s); err != nil {
			errs = append(errs, wrapHook(err))
		}
	}

	return errors.Join(errs...)
}

func (s *Scanner[E]) scanFile(ctx context.Context, path string) (err error) {
	ctx, span := s.opts.tracer.Start(ctx, "scan.file")
	span.SetAttribute("scan.path", path)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if s.shouldWatch(path) {
		if err := s.watches.ensure(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "path", path)
		}
	}

	cursor := s.cursors.get(path)
	result, err := s.source.ParseFile(ctx, path, cursor)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrParseFailed.Error()), "path", path)
	}

	stats, keys := s.partition(path, cursor, result)
	span.SetAttribute("scan.parsed", stats.Parsed)
	span.SetAttribute("scan.new", stats.New)

	if err := s.source.OnFileScanned(ctx, stats); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConsumerFailed.Error()), "path", path)
	}

	s.cursors.set(path, result.NextCursor)
	s.keys.add(slices.Values(keys))

	if stats.New > 0 {
		s.opts.logger.Debug(fmt.Sprintf("%s: %d new, %d skipped, cursor %d -> %d",
			path, stats.New, stats.Skipped, cursor, result.NextCursor))
	}
	return nil
}

// partition splits parsed entries into the events not delivered before and
// the keys that must be committed with them.
func (s *Scanner[E]) partition(path string, cursor int64, result domain.ScanResult[E]) (domain.ScanStats[E], []string) {
	stats := domain.ScanStats[E]{
		Path:       path,
		Parsed:     len(result.Entries),
		Cursor:     cursor,
		NextCursor: result.NextCursor,
	}

	var keys []string
	batch := make(map[string]struct{}, len(result.Entries))
	for _, entry := range result.Entries {
		key := s.source.KeyOf(entry.Event, domain.NewKeyContext(path, entry))
		if _, dup := batch[key]; dup {
			stats.Skipped++
			continue
		}
		batch[key] = struct{}{}

		if s.keys.has(key) {
			s.keys.touch(key)
			stats.Skipped++
			continue
		}
		stats.Events = append(stats.Events, entry.Event)
		keys = append(keys, key)
	}
	stats.New = len(stats.Events)

	return stats, keys
}

func wrapHook(err error) error {
	return zerr.Wrap(err, domain.ErrHookFailed.Error())
}
