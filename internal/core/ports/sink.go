package ports

import (
	"context"

	"go.trai.ch/sift/internal/core/domain"
)

// EventSink receives the new events of each scanned file.
//
//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks
type EventSink interface {
	// Deliver hands over the new events of one file. A returned error leaves the
	// file uncommitted so the same events are offered again on the next pass.
	Deliver(ctx context.Context, stats domain.ScanStats[domain.SessionEvent]) error
}
