// Package jsonl reads append-only JSON Lines session files.
package jsonl

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// skipDirectories are never descended into.
var skipDirectories = map[string]bool{
	".git":               true,
	"node_modules":       true,
	domain.StateDirName: true,
}

// Discover walks every root concurrently and returns the regular files whose
// base name matches an include glob and no exclude glob, in lexical order.
// Roots that do not exist yet are skipped.
func Discover(ctx context.Context, roots, include, exclude []string) ([]string, error) {
	var (
		mu    sync.Mutex
		found = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		g.Go(func() error {
			return walkRoot(ctx, root, include, exclude, func(path string) {
				mu.Lock()
				found[path] = struct{}{}
				mu.Unlock()
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]string, 0, len(found))
	for path := range found {
		files = append(files, path)
	}
	slices.Sort(files)
	return files, nil
}

func walkRoot(ctx context.Context, root string, include, exclude []string, add func(string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return zerr.With(err, "root", root)
	}

	info, err := os.Stat(absRoot)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return zerr.With(err, "root", absRoot)
	case !info.IsDir():
		if Matches(filepath.Base(absRoot), include, exclude) {
			add(absRoot)
		}
		return nil
	}

	conf := &fastwalk.Config{
		Follow: false,
	}

	// The callback runs on several goroutines at once.
	walkErr := fastwalk.Walk(conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped; they are retried on the next pass.
			return nil //nolint:nilerr // skipping is intended
		}

		if d.IsDir() {
			if path != absRoot && skipDirectories[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && Matches(d.Name(), include, exclude) {
			add(path)
		}
		return nil
	})
	if walkErr != nil {
		return zerr.With(walkErr, "root", absRoot)
	}
	return nil
}

// Matches reports whether name matches an include glob and no exclude glob.
// Malformed globs never match.
func Matches(name string, include, exclude []string) bool {
	if !matchAny(name, include) {
		return false
	}
	return !matchAny(name, exclude)
}

func matchAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
