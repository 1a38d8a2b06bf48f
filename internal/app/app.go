// Package app implements the application layer for sift.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/sift/internal/adapters/checkpoint"
	"go.trai.ch/sift/internal/adapters/config"
	"go.trai.ch/sift/internal/adapters/jsonl"
	"go.trai.ch/sift/internal/adapters/sink"
	"go.trai.ch/sift/internal/adapters/watcher"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/engine/scanner"
	"go.trai.ch/zerr"
)

// ShutdownTimeout bounds how long Cleanup may wait for the pass in flight.
const ShutdownTimeout = 10 * time.Second

// WatcherFactory creates the change notifier used by Watch.
type WatcherFactory func(log ports.Logger, debounce time.Duration) (ports.FileWatcher, error)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	tracer       ports.Tracer
	stdout       io.Writer
	newWatcher   WatcherFactory
	now          func() time.Time
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, log ports.Logger, tracer ports.Tracer) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		tracer:       tracer,
		stdout:       os.Stdout,
		newWatcher: func(log ports.Logger, debounce time.Duration) (ports.FileWatcher, error) {
			return watcher.NewWatcher(log, debounce)
		},
		now: time.Now,
	}
}

// WithOutput sets the writer events go to when no output file is configured.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// WithWatcherFactory replaces the fsnotify based change notifier.
// This is primarily used for testing.
func (a *App) WithWatcherFactory(f WatcherFactory) *App {
	a.newWatcher = f
	return a
}

// WithClock sets the time source used to stamp checkpoints.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// ConfigureLogging switches the logger to verbose or JSON output when it supports it.
func (a *App) ConfigureLogging(verbose, jsonOutput bool) {
	type configurable interface {
		SetVerbose(enable bool)
		SetJSON(enable bool)
	}
	if l, ok := a.logger.(configurable); ok {
		l.SetJSON(jsonOutput)
		l.SetVerbose(verbose)
	}
}

// Options are command line overrides of the configuration file.
// Zero values leave the configured value untouched.
type Options struct {
	Roots           []string
	Include         []string
	Exclude         []string
	Interval        time.Duration
	StateDir        string
	Output          string
	MaxKeys         int
	NoWatch         bool
	ContinueOnError bool
}

// Watch scans continuously until ctx is cancelled.
// The first pass runs before Watch settles into waiting; its failure is returned.
func (a *App) Watch(ctx context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}
	if len(cfg.Roots) == 0 {
		return domain.ErrNoRoots
	}

	sess, closeSession, err := a.openSession(cfg)
	if err != nil {
		return err
	}
	defer closeSession()

	var fw ports.FileWatcher
	if cfg.Watch {
		fw, err = a.newWatcher(a.logger, cfg.Debounce)
		if err != nil {
			return err
		}
		defer func() {
			_ = fw.Close()
		}()
	}

	sc := scanner.New[domain.SessionEvent](sess, fw, a.scannerOptions(cfg)...)
	if err := sc.Start(ctx); err != nil {
		_ = a.cleanup(ctx, sc, sess)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	a.logger.Info(fmt.Sprintf("watching %d file(s) under %d root(s)", len(sc.WatchedFiles()), len(cfg.Roots)))
	<-ctx.Done()

	err = a.cleanup(ctx, sc, sess)
	files, events := sess.Totals()
	a.logger.Info(fmt.Sprintf("stopped after delivering %d event(s) from %d file(s)", events, files))
	return err
}

// Scan runs a single pass and returns its outcome.
func (a *App) Scan(ctx context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}
	if len(cfg.Roots) == 0 {
		return domain.ErrNoRoots
	}

	sess, closeSession, err := a.openSession(cfg)
	if err != nil {
		return err
	}
	defer closeSession()

	if !sess.ShouldScan() {
		a.logger.Info("scanning is paused, run `sift resume` to continue")
		return nil
	}

	sc := scanner.New[domain.SessionEvent](sess, nil, a.scannerOptions(cfg)...)
	startErr := sc.Start(ctx)
	cleanupErr := a.cleanup(ctx, sc, sess)
	if startErr != nil {
		return startErr
	}

	files, events := sess.Totals()
	a.logger.Info(fmt.Sprintf("delivered %d new event(s) from %d file(s)", events, files))
	return cleanupErr
}

// Status describes the persisted scanner state.
type Status struct {
	StateDir   string
	Paused     bool
	Checkpoint *domain.Checkpoint
}

// Status reads the pause marker and the stored checkpoint.
func (a *App) Status(ctx context.Context, opts Options) (Status, error) {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return Status{}, err
	}

	cp, err := checkpoint.NewStore(cfg.StateDir).Load(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{
		StateDir:   cfg.StateDir,
		Paused:     checkpoint.NewPauseMarker(cfg.StateDir).Paused(),
		Checkpoint: cp,
	}, nil
}

// Pause stops scanning, including in running watchers, until Resume is called.
func (a *App) Pause(_ context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}
	if err := checkpoint.NewPauseMarker(cfg.StateDir).Pause(); err != nil {
		return err
	}
	a.logger.Info("scanning paused")
	return nil
}

// Resume lifts a pause.
func (a *App) Resume(_ context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}
	if err := checkpoint.NewPauseMarker(cfg.StateDir).Resume(); err != nil {
		return err
	}
	a.logger.Info("scanning resumed")
	return nil
}

// Reset forgets all progress, so the next pass delivers every event again.
func (a *App) Reset(ctx context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}
	store := checkpoint.NewStore(cfg.StateDir)
	if err := store.Reset(ctx); err != nil {
		return err
	}
	a.logger.Info("removed " + store.Path())
	return nil
}

func (a *App) loadConfig(opts Options) (domain.Config, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return domain.Config{}, zerr.Wrap(err, "failed to load configuration")
	}
	return opts.apply(cfg)
}

// apply overrides cfg with every option that is set.
func (o Options) apply(cfg domain.Config) (domain.Config, error) {
	if len(o.Roots) > 0 {
		roots := make([]string, 0, len(o.Roots))
		for _, root := range o.Roots {
			abs, err := filepath.Abs(root)
			if err != nil {
				return domain.Config{}, zerr.With(zerr.Wrap(err, "failed to resolve root"), "root", root)
			}
			roots = append(roots, abs)
		}
		cfg.Roots = roots
	}
	if len(o.Include) > 0 {
		cfg.Include = o.Include
	}
	if len(o.Exclude) > 0 {
		cfg.Exclude = o.Exclude
	}
	if err := config.ValidatePatterns(cfg.Include, cfg.Exclude); err != nil {
		return domain.Config{}, err
	}

	switch {
	case o.Interval < 0:
		return domain.Config{}, zerr.With(domain.ErrInvalidInterval, "interval", o.Interval.String())
	case o.Interval > 0:
		cfg.Interval = o.Interval
	}
	switch {
	case o.MaxKeys < 0:
		return domain.Config{}, zerr.With(domain.ErrInvalidMaxKeys, "max_keys", o.MaxKeys)
	case o.MaxKeys > 0:
		cfg.MaxKeys = o.MaxKeys
	}

	if o.StateDir != "" {
		cfg.StateDir = o.StateDir
	}
	switch o.Output {
	case "":
	case "-":
		cfg.Output = ""
	default:
		cfg.Output = o.Output
	}
	if o.NoWatch {
		cfg.Watch = false
	}
	if o.ContinueOnError {
		cfg.ContinueOnError = true
	}
	return cfg, nil
}

// openSession assembles the source for cfg. The returned func closes the sink.
func (a *App) openSession(cfg domain.Config) (*sessionSource, func(), error) {
	instance := uuid.NewString()

	var (
		out     *sink.Sink
		err     error
		closeFn = func() {}
	)
	if cfg.Output == "" {
		out = sink.New(a.stdout, instance)
	} else {
		out, err = sink.Open(cfg.Output, instance)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			if err := out.Close(); err != nil {
				a.logger.Warn("failed to close output: " + err.Error())
			}
		}
	}

	a.logger.Debug(fmt.Sprintf("instance %s, state in %s", instance, cfg.StateDir))

	return &sessionSource{
		Source: jsonl.NewSource(cfg.Roots, cfg.Include, cfg.Exclude),
		sink:   out,
		store:  checkpoint.NewStore(cfg.StateDir),
		pause:  checkpoint.NewPauseMarker(cfg.StateDir),
		logger: a.logger,
		now:    a.now,
	}, closeFn, nil
}

func (a *App) scannerOptions(cfg domain.Config) []scanner.Option {
	opts := []scanner.Option{
		scanner.WithInterval(cfg.Interval),
		scanner.WithMaxKeys(cfg.MaxKeys),
		scanner.WithLogger(a.logger),
		scanner.WithTracer(a.tracer),
		scanner.WithErrorHandler(func(err error) {
			a.logger.Error(err)
		}),
	}
	if cfg.ContinueOnError {
		opts = append(opts, scanner.WithContinueOnFileError())
	}
	return opts
}

// cleanup stops sc with a fresh deadline, since ctx is usually already
// cancelled, then saves whatever the last pass committed without saving.
func (a *App) cleanup(ctx context.Context, sc *scanner.Scanner[domain.SessionEvent], sess *sessionSource) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := sc.Cleanup(cleanupCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zerr.With(zerr.Wrap(err, "scan did not finish in time"), "timeout", ShutdownTimeout.String())
		}
		return err
	}
	return sess.Flush(cleanupCtx, sc)
}
