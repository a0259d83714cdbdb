package walmgr

import "sync/atomic"

// LSNTracker hands out monotonically increasing WAL ids, kept from the
// teacher's pkg/storage/lsn_tracker.go almost unchanged. It is a single
// atomic counter; Manager.Append calls Next once per record, on the
// goroutine of whichever caller is committing.
type LSNTracker struct {
	current uint64
}

// NewLSNTracker creates a tracker starting at start.
func NewLSNTracker(start uint64) *LSNTracker {
	return &LSNTracker{current: start}
}

// Next increments and returns the next id.
func (lt *LSNTracker) Next() uint64 {
	return atomic.AddUint64(&lt.current, 1)
}

// Current returns the last-handed-out id.
func (lt *LSNTracker) Current() uint64 {
	return atomic.LoadUint64(&lt.current)
}

// Set overwrites the current id, used during crash recovery once the
// highest id on disk is known.
func (lt *LSNTracker) Set(val uint64) {
	atomic.StoreUint64(&lt.current, val)
}
