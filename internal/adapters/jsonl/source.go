package jsonl

import (
	"context"

	"go.trai.ch/sift/internal/core/domain"
)

// Source discovers, parses and keys JSONL session files. It covers the
// format side of a scanner source; delivery is left to the embedding type.
type Source struct {
	roots   []string
	include []string
	exclude []string
}

// NewSource creates a Source for the given roots and file name globs.
func NewSource(roots, include, exclude []string) *Source {
	return &Source{roots: roots, include: include, exclude: exclude}
}

// FindFiles returns the session files currently present under the roots.
func (s *Source) FindFiles(ctx context.Context) ([]string, error) {
	return Discover(ctx, s.roots, s.include, s.exclude)
}

// ParseFile returns the complete lines of path written after cursor.
func (s *Source) ParseFile(ctx context.Context, path string, cursor int64) (domain.ScanResult[domain.SessionEvent], error) {
	if err := ctx.Err(); err != nil {
		return domain.ScanResult[domain.SessionEvent]{NextCursor: cursor}, err
	}
	return Parse(path, cursor)
}

// KeyOf derives the dedup key of ev.
func (s *Source) KeyOf(ev domain.SessionEvent, kc domain.KeyContext) string {
	return Key(ev, kc)
}
