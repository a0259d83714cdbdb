package walmgr

import (
	"encoding/binary"
	"io"
)

const (
	HeaderSize = 24

	WALVersion = 1

	// WALMagic is the fixed sentinel at the front of every record, kept
	// from the teacher's pkg/wal/entry.go unchanged.
	WALMagic = 0xDEADBEEF
)

// EntryType is the kind of statement a record carries, generalized from
// the teacher's fixed Insert/Update/Delete/Begin/Commit/Abort triplet
// to the full statement-kind set spec.md §6 names.
type EntryType uint8

const (
	EntryCreateDatabase EntryType = iota + 1
	EntryDropDatabase
	EntryCreateCollection
	EntryDropCollection
	EntryInsertOne
	EntryInsertMany
	EntryDeleteOne
	EntryDeleteMany
	EntryUpdateOne
	EntryUpdateMany
	EntryCreateIndex
	EntryDropIndex
)

// WALHeader is the fixed 24-byte record header.
type WALHeader struct {
	Magic      uint32
	Version    uint8
	EntryType  uint8
	Reserved   uint16
	LSN        uint64
	PayloadLen uint32
	CRC32      uint32
}

// WALEntry is one complete record: header plus its BSON-encoded payload.
type WALEntry struct {
	Header  WALHeader
	Payload []byte
}

// Encode serializes the header into buf, which must be HeaderSize long.
func (h *WALHeader) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.EntryType
	binary.LittleEndian.PutUint16(buf[6:8], h.Reserved)
	binary.LittleEndian.PutUint64(buf[8:16], h.LSN)
	binary.LittleEndian.PutUint32(buf[16:20], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[20:24], h.CRC32)
}

// Decode deserializes buf into the header.
func (h *WALHeader) Decode(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = buf[4]
	h.EntryType = buf[5]
	h.Reserved = binary.LittleEndian.Uint16(buf[6:8])
	h.LSN = binary.LittleEndian.Uint64(buf[8:16])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[16:20])
	h.CRC32 = binary.LittleEndian.Uint32(buf[20:24])
}

// WriteTo writes header then payload to w.
func (e *WALEntry) WriteTo(w io.Writer) (int64, error) {
	var headerBuf [HeaderSize]byte
	e.Header.Encode(headerBuf[:])

	n, err := w.Write(headerBuf[:])
	if err != nil {
		return int64(n), err
	}

	m, err := w.Write(e.Payload)
	return int64(n + m), err
}
