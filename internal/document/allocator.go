package document

import "sync"

// Allocator pools byte buffers used while building JSON output, mirroring
// the teacher WAL package's buffer-pool idiom (pkg/wal/pool.go) applied to
// per-document JSON marshaling instead of WAL payload framing.
type Allocator struct {
	bufPool sync.Pool
}

// NewAllocator creates an allocator. Every root document (New, FromJSON)
// creates its own, which the sub-documents returned by GetArray/GetDict
// share; collection.Context holds a separate one of its own.
func NewAllocator() *Allocator {
	return &Allocator{
		bufPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 0, 512)
				return &buf
			},
		},
	}
}

func (a *Allocator) acquireBuffer() *[]byte {
	return a.bufPool.Get().(*[]byte)
}

func (a *Allocator) releaseBuffer(buf *[]byte) {
	*buf = (*buf)[:0]
	a.bufPool.Put(buf)
}
