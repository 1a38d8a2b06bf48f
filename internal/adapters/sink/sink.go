// Package sink writes delivered session events as newline-delimited JSON.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.EventSink = (*Sink)(nil)

// Record is the line written for every delivered event.
// Data holds the original line when it was valid JSON, Line otherwise.
type Record struct {
	Instance  string          `json:"instance"`
	Path      string          `json:"path"`
	Offset    int64           `json:"offset"`
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
	Data      json.RawMessage `json:"data,omitempty"`
	Line      string          `json:"line,omitempty"`
}

// Sink implements ports.EventSink on an io.Writer.
type Sink struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	instance string
}

// New creates a sink writing to w. instance tags every record.
func New(w io.Writer, instance string) *Sink {
	return &Sink{w: w, instance: instance}
}

// Open creates a sink appending to the file at path.
func Open(path, instance string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrSinkWriteFailed.Error()), "path", path)
	}
	// #nosec G304 -- path is the configured output file
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrSinkWriteFailed.Error()), "path", path)
	}
	s := New(f, instance)
	s.closer = f
	return s, nil
}

// Deliver writes the events of one file in a single write.
func (s *Sink) Deliver(ctx context.Context, stats domain.ScanStats[domain.SessionEvent]) error {
	if len(stats.Events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, ev := range stats.Events {
		if err := enc.Encode(s.record(ev)); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrSinkWriteFailed.Error()), "path", ev.Path)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrSinkWriteFailed.Error()), "path", stats.Path)
	}
	return nil
}

// Close closes the underlying file, if the sink owns one.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Sink) record(ev domain.SessionEvent) Record {
	r := Record{
		Instance:  s.instance,
		Path:      ev.Path,
		Offset:    ev.Offset,
		ID:        ev.ID,
		Type:      ev.Type,
		Timestamp: ev.Timestamp,
	}
	if ev.Valid {
		r.Data = json.RawMessage(ev.Raw)
	} else {
		r.Line = string(ev.Raw)
	}
	return r
}
