package diskmgr

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/walmgr"
)

const (
	// SegmentMagic tags every segment file, mirroring the teacher's
	// pkg/heap.HeapMagic ("HEAP" in ASCII hex).
	SegmentMagic = 0x48454150

	segmentHeaderSize = 8 // Magic(4) + Version(2) + Reserved(2)
	recordHeaderSize  = 17 // Valid(1) + LSN(8) + PayloadLen(4) + CRC32(4)

	// DefaultMaxSegmentSize matches the teacher's pkg/heap default.
	DefaultMaxSegmentSize int64 = 64 * 1024 * 1024
)

// segmentRecord is the BSON payload written per document version. It
// carries the document's JSON-text encoding (internal/document's own
// text codec) rather than a tape dump, since the tape arena is a
// per-process in-memory structure with no stable on-disk shape.
type segmentRecord struct {
	DocID string `bson:"doc_id"`
	JSON  string `bson:"json"`
}

// segment is one append-only file of the collection's document log.
// Kept from the teacher's pkg/heap.Segment field set, simplified to a
// single current-state record per append (no MVCC version chain — see
// DESIGN.md for the justification) since spec.md only requires crash
// recovery of current document state, not historical versions.
//
// A sealed (no longer active) segment may be zstd-compressed on disk;
// compressed segments have no open file handle (appends never target
// them again) and are only decompressed on replay.
type segment struct {
	id         int
	path       string
	file       *os.File
	size       int64
	compressed bool
}

func createSegment(path string, id int) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, dberrors.Wrap(err, "create segment file")
	}
	seg := &segment{id: id, path: path, file: f}
	if err := seg.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return seg, nil
}

func openSegment(path string, id int) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{id: id, path: path, file: f, size: info.Size()}, nil
}

func (s *segment) writeHeader() error {
	buf := make([]byte, segmentHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], SegmentMagic)
	binary.LittleEndian.PutUint16(buf[4:6], 1)
	if _, err := s.file.WriteAt(buf, 0); err != nil {
		return dberrors.Wrap(err, "write segment header")
	}
	s.size = segmentHeaderSize
	return nil
}

// append writes one (docID, json, valid, lsn) record at the end of the
// segment and returns the new segment size.
func (s *segment) append(docID, jsonText string, valid bool, lsn uint64) (int64, error) {
	payload, err := bson.Marshal(segmentRecord{DocID: docID, JSON: jsonText})
	if err != nil {
		return 0, dberrors.Wrap(err, "encode segment record")
	}

	buf := make([]byte, recordHeaderSize+len(payload))
	if valid {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint64(buf[1:9], lsn)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[13:17], walmgr.CalculateCRC32(payload))
	copy(buf[recordHeaderSize:], payload)

	if _, err := s.file.WriteAt(buf, s.size); err != nil {
		return 0, dberrors.Wrap(err, "append segment record")
	}
	s.size += int64(len(buf))
	return s.size, nil
}

func (s *segment) sync() error { return s.file.Sync() }

func (s *segment) close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// seal closes the segment's file handle, zstd-compresses its contents
// to a sibling "<path>.zst" file, and removes the plain file — the
// segment becomes read-only and decompressed on demand during replay.
// Grounded on the domain-stack wiring note that a sealed, no-longer-
// written heap segment is a natural fit for compression on rotation.
func (s *segment) seal() error {
	if s.compressed {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return dberrors.Wrap(err, "read segment for compression")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return dberrors.Wrap(err, "create zstd encoder")
	}
	compressed := enc.EncodeAll(data, nil)
	enc.Close()

	dstPath := s.path + ".zst"
	if err := os.WriteFile(dstPath, compressed, 0644); err != nil {
		return dberrors.Wrap(err, "write compressed segment")
	}
	if err := s.file.Close(); err != nil {
		return dberrors.Wrap(err, "close segment before removing plain file")
	}
	if err := os.Remove(s.path); err != nil {
		return dberrors.Wrap(err, "remove plain segment after compression")
	}

	s.path = dstPath
	s.file = nil
	s.compressed = true
	return nil
}

// replayRecord is one decoded record delivered during segment replay.
type replayRecord struct {
	DocID string
	JSON  string
	Valid bool
	LSN   uint64
}

// replay reads every record in the segment from the start, calling fn
// for each. A malformed tail record (bad checksum, truncated payload)
// stops replay at the last valid record, matching walmgr.Replay's
// contract for the same kind of append-only log. Compressed (sealed)
// segments are transparently decompressed first.
func (s *segment) replay(fn func(replayRecord) error) error {
	if s.compressed {
		f, err := os.Open(s.path)
		if err != nil {
			return dberrors.Wrap(err, "open compressed segment")
		}
		defer f.Close()
		zr, err := zstd.NewReader(f)
		if err != nil {
			return dberrors.Wrap(err, "open zstd reader")
		}
		defer zr.Close()
		if _, err := io.CopyN(io.Discard, zr, segmentHeaderSize); err != nil {
			return nil
		}
		return replayFrom(zr, fn)
	}

	if _, err := s.file.Seek(segmentHeaderSize, io.SeekStart); err != nil {
		return err
	}
	return replayFrom(s.file, fn)
}

func replayFrom(r io.Reader, fn func(replayRecord) error) error {
	for {
		header := make([]byte, recordHeaderSize)
		_, err := io.ReadFull(r, header)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return nil // truncated header: stop at the last valid record
		}

		valid := header[0] == 1
		lsn := binary.LittleEndian.Uint64(header[1:9])
		payloadLen := binary.LittleEndian.Uint32(header[9:13])
		crc := binary.LittleEndian.Uint32(header[13:17])

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil // truncated payload: stop here
		}
		if !walmgr.ValidateCRC32(payload, crc) {
			return nil // corrupt tail: stop here
		}

		var rec segmentRecord
		if err := bson.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("decode segment record: %w", err)
		}

		if err := fn(replayRecord{DocID: rec.DocID, JSON: rec.JSON, Valid: valid, LSN: lsn}); err != nil {
			return err
		}
	}
}
