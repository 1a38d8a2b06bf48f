// Package domain contains the core types shared by the scanner, its sources and adapters.
package domain

// ScanEntry is one parsed unit of a session file.
// Position is a location hint used only for key derivation (a line index or a
// byte offset, at the source's discretion). It carries no ordering guarantee.
type ScanEntry[E any] struct {
	Event       E
	Position    int64
	HasPosition bool
}

// ScanResult is the outcome of parsing one file from a cursor.
// NextCursor is committed only once the consumer has accepted the batch.
type ScanResult[E any] struct {
	Entries    []ScanEntry[E]
	NextCursor int64
}

// ScanStats summarizes one file of one pass. Events holds only the new events.
type ScanStats[E any] struct {
	Path       string
	Events     []E
	Parsed     int
	New        int
	Skipped    int
	Cursor     int64
	NextCursor int64
}

// KeyContext is the location information handed to key derivation.
type KeyContext struct {
	Path        string
	Position    int64
	HasPosition bool
}

// NewKeyContext builds the key context for an entry found in path.
func NewKeyContext[E any](path string, entry ScanEntry[E]) KeyContext {
	return KeyContext{
		Path:        path,
		Position:    entry.Position,
		HasPosition: entry.HasPosition,
	}
}
