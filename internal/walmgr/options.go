package walmgr

import "time"

// SyncPolicy is the durability strategy for WAL writes.
type SyncPolicy int

const (
	// SyncEveryWrite fsyncs after every write. Safest, slowest.
	SyncEveryWrite SyncPolicy = iota

	// SyncInterval fsyncs periodically from a background ticker.
	SyncInterval

	// SyncBatch fsyncs once accumulated bytes cross SyncBatchBytes.
	SyncBatch
)

// Options configures a Writer.
type Options struct {
	DirPath string

	BufferSize int

	SyncPolicy SyncPolicy

	SyncIntervalDuration time.Duration

	SyncBatchBytes int64
}

// DefaultOptions returns a safe default configuration.
func DefaultOptions() Options {
	return Options{
		DirPath:              "./wal_data",
		BufferSize:           64 * 1024,
		SyncPolicy:           SyncInterval,
		SyncIntervalDuration: 200 * time.Millisecond,
		SyncBatchBytes:       1 * 1024 * 1024,
	}
}
