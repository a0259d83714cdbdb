package diskmgr

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/bobboyms/docengine/internal/dberrors"
)

// Checkpoint records the single highest WAL id whose effects are known
// durable on disk, generalizing the teacher's pkg/storage/checkpoint.go
// (which snapshots one B+Tree per index, keyed by table+index name,
// keeping only the latest LSN's file) up one level: spec.md §4.9/§6
// wants one engine-wide id, not a per-index snapshot, since this
// engine's document storage is segment-append-only rather than a
// checkpointed B+Tree image.
type Checkpoint struct {
	path string
	mu   sync.Mutex
	last uint64
}

func openCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cp, nil
	}
	if err != nil {
		return nil, dberrors.Wrap(err, "read checkpoint file")
	}
	if len(data) < 8 {
		return cp, nil
	}
	cp.last = binary.LittleEndian.Uint64(data[:8])
	return cp, nil
}

// flushUpTo writes id to the checkpoint file via the teacher's
// write-temp-then-rename idiom, as a no-op if id doesn't advance the
// last recorded value — spec.md §5's "idempotent disk flushes".
func (cp *Checkpoint) flushUpTo(id uint64) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if id <= cp.last {
		return nil
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)

	tmpPath := cp.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0644); err != nil {
		return dberrors.Wrap(err, "write temp checkpoint file")
	}
	if err := os.Rename(tmpPath, cp.path); err != nil {
		return dberrors.Wrap(err, "rename checkpoint file")
	}

	cp.last = id
	return nil
}

func (cp *Checkpoint) lastFlushed() uint64 {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.last
}
