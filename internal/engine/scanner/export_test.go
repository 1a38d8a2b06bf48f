package scanner

import "context"

// ScanDirect bypasses the scheduler so tests can drive the in-flight guard.
func (s *Scanner[E]) ScanDirect(ctx context.Context) error {
	return s.scan(ctx)
}
