package jsonl

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

// Parse reads the complete lines of path that start at or after cursor.
//
// The returned cursor points just past the last newline read, so a line that
// is still being written is picked up whole on a later call. A cursor beyond
// the end of the file means the file was truncated or replaced; reading then
// restarts at offset 0. A file that no longer exists yields no entries.
func Parse(path string, cursor int64) (domain.ScanResult[domain.SessionEvent], error) {
	result := domain.ScanResult[domain.SessionEvent]{NextCursor: cursor}

	// #nosec G304 -- path comes from discovery under the configured roots
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, zerr.With(err, "path", path)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return result, zerr.With(err, "path", path)
	}
	if cursor > info.Size() || cursor < 0 {
		cursor = 0
	}
	if _, err := f.Seek(cursor, io.SeekStart); err != nil {
		return result, zerr.With(zerr.With(err, "path", path), "cursor", cursor)
	}

	reader := bufio.NewReader(f)
	offset := cursor
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// Partial trailing line stays unconsumed.
			break
		}
		if err != nil {
			return domain.ScanResult[domain.SessionEvent]{NextCursor: cursor},
				zerr.With(zerr.With(err, "path", path), "offset", offset)
		}

		start := offset
		offset += int64(len(line))

		raw := bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		result.Entries = append(result.Entries, domain.ScanEntry[domain.SessionEvent]{
			Event:       Decode(path, start, raw),
			Position:    start,
			HasPosition: true,
		})
	}

	result.NextCursor = offset
	return result, nil
}

// Decode extracts the well-known fields of one line.
// Lines that are not valid JSON are kept with Valid=false.
func Decode(path string, offset int64, raw []byte) domain.SessionEvent {
	ev := domain.SessionEvent{
		Path:   path,
		Offset: offset,
		Raw:    raw,
		Valid:  gjson.ValidBytes(raw),
	}
	if !ev.Valid {
		return ev
	}

	fields := gjson.GetManyBytes(raw, "uuid", "id", "type", "timestamp")
	ev.ID = fields[0].String()
	if ev.ID == "" {
		ev.ID = fields[1].String()
	}
	ev.Type = fields[2].String()
	ev.Timestamp = parseTimestamp(fields[3])

	return ev
}

// parseTimestamp accepts RFC 3339 strings and unix milliseconds.
func parseTimestamp(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.String:
		if ts, err := time.Parse(time.RFC3339Nano, v.Str); err == nil {
			return ts.UTC()
		}
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC()
	default:
	}
	return time.Time{}
}
