package domain

import "time"

// SessionEvent is one line of a JSONL session file.
type SessionEvent struct {
	// Path is the file the event was read from.
	Path string `json:"path"`
	// Offset is the byte offset of the line within the file.
	Offset int64 `json:"offset"`
	// ID is the event's own identifier (uuid or id field), if any.
	ID string `json:"id,omitempty"`
	// Type is the event's type field, if any.
	Type string `json:"type,omitempty"`
	// Timestamp is the event's timestamp field, if present and parseable.
	Timestamp time.Time `json:"timestamp,omitzero"`
	// Valid reports whether the line was well-formed JSON.
	Valid bool `json:"valid"`
	// Raw is the line as written, without the trailing newline.
	Raw []byte `json:"-"`
}
