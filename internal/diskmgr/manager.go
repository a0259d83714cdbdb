// Package diskmgr is the disk manager: per-collection document
// segments plus the engine-wide checkpoint, generalizing the teacher's
// pkg/heap (segmented append-only storage) and pkg/storage/checkpoint.go
// (atomic snapshot files) per SPEC_FULL §13.
package diskmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
)

// collectionStore owns one collection's active segment and rotation
// state, mirroring the teacher's HeapManager scoped down to a single
// collection's directory instead of one shared basePath prefix.
type collectionStore struct {
	dir            string
	segments       []*segment
	active         *segment
	maxSegmentSize int64
	mu             sync.Mutex
}

// Manager owns every collection's segment store, the shared bbolt
// index-backing handles, and the single engine-wide checkpoint file.
type Manager struct {
	baseDir        string
	maxSegmentSize int64

	mu     sync.Mutex
	stores map[string]*collectionStore
	diskDBs map[string]*bbolt.DB

	checkpoint *Checkpoint
}

// NewManager opens (or creates) the disk manager rooted at baseDir.
func NewManager(baseDir string, maxSegmentSize int64) (*Manager, error) {
	if maxSegmentSize <= 0 {
		maxSegmentSize = DefaultMaxSegmentSize
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, dberrors.Wrap(err, "create disk manager base dir")
	}
	cp, err := openCheckpoint(filepath.Join(baseDir, "checkpoint.chk"))
	if err != nil {
		return nil, err
	}
	return &Manager{
		baseDir:        baseDir,
		maxSegmentSize: maxSegmentSize,
		stores:         make(map[string]*collectionStore),
		diskDBs:        make(map[string]*bbolt.DB),
		checkpoint:     cp,
	}, nil
}

func collectionKey(database, collection string) string { return database + "/" + collection }

func (m *Manager) collectionDir(database, collection string) string {
	return filepath.Join(m.baseDir, database, collection)
}

func (m *Manager) storeFor(database, collection string) (*collectionStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionKey(database, collection)
	if st, ok := m.stores[key]; ok {
		return st, nil
	}

	dir := m.collectionDir(database, collection)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberrors.Wrap(err, "create collection segment dir")
	}
	st := &collectionStore{dir: dir, maxSegmentSize: m.maxSegmentSize}
	if err := st.openOrCreate(); err != nil {
		return nil, err
	}
	m.stores[key] = st
	return st, nil
}

func (st *collectionStore) segmentPath(id int) string {
	return filepath.Join(st.dir, fmt.Sprintf("segment_%03d.seg", id))
}

// openOrCreate scans for existing segment files in order, opening each
// (a sealed segment may only exist as its compressed ".zst" sibling),
// and creates the first one if the directory is empty, per the
// teacher's NewHeapManager scan-then-create-if-absent idiom.
func (st *collectionStore) openOrCreate() error {
	id := 1
	for {
		path := st.segmentPath(id)
		if _, err := os.Stat(path); err == nil {
			seg, err := openSegment(path, id)
			if err != nil {
				return err
			}
			st.segments = append(st.segments, seg)
			id++
			continue
		}
		if _, err := os.Stat(path + ".zst"); err == nil {
			st.segments = append(st.segments, &segment{id: id, path: path + ".zst", compressed: true})
			id++
			continue
		}
		break
	}
	if len(st.segments) == 0 {
		seg, err := createSegment(st.segmentPath(1), 1)
		if err != nil {
			return err
		}
		st.segments = append(st.segments, seg)
	}
	st.active = st.segments[len(st.segments)-1]
	return nil
}

// appendLocked writes one record, rotating to a new segment first if
// the active one would cross maxSegmentSize. The segment being retired
// is sealed (zstd-compressed) only after the new active segment is
// durably created, so a crash mid-rotation never loses the ability to
// keep writing.
func (st *collectionStore) appendLocked(docID, jsonText string, valid bool, lsn uint64) error {
	if st.active.size >= st.maxSegmentSize {
		retiring := st.active
		next := st.active.id + 1
		seg, err := createSegment(st.segmentPath(next), next)
		if err != nil {
			return err
		}
		st.segments = append(st.segments, seg)
		st.active = seg
		if err := retiring.seal(); err != nil {
			return err
		}
	}
	_, err := st.active.append(docID, jsonText, valid, lsn)
	return err
}

// AppendDocument persists a live document version for (database,
// collection), overwriting its previous on-disk version on replay
// (replay keeps only the highest-LSN record per docID).
func (m *Manager) AppendDocument(database, collection, docID string, doc *document.Document, lsn uint64) error {
	st, err := m.storeFor(database, collection)
	if err != nil {
		return err
	}
	text, err := doc.ToJSON()
	if err != nil {
		return dberrors.Wrap(err, "encode document for segment append")
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.appendLocked(docID, text, true, lsn)
}

// DeleteDocument appends a tombstone record for docID.
func (m *Manager) DeleteDocument(database, collection, docID string, lsn uint64) error {
	st, err := m.storeFor(database, collection)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.appendLocked(docID, "", false, lsn)
}

// LoadCollection replays every segment of (database, collection) in
// file order and returns the surviving documents in insertion-discovery
// order (first-seen docID order, which is the
// closest on-disk analogue to the live collection.Context's insertion
// order after a crash — true original insertion order isn't
// recoverable once multiple segments interleave updates).
func (m *Manager) LoadCollection(database, collection string) ([]*document.Document, error) {
	st, err := m.storeFor(database, collection)
	if err != nil {
		return nil, err
	}

	type slot struct {
		json  string
		valid bool
		lsn   uint64
	}
	latest := make(map[string]*slot)
	var order []string

	for _, seg := range st.segments {
		err := seg.replay(func(r replayRecord) error {
			if _, seen := latest[r.DocID]; !seen {
				order = append(order, r.DocID)
			}
			cur, ok := latest[r.DocID]
			if !ok || r.LSN >= cur.lsn {
				latest[r.DocID] = &slot{json: r.JSON, valid: r.Valid, lsn: r.LSN}
			}
			return nil
		})
		if err != nil {
			return nil, dberrors.Wrap(err, "replay segment")
		}
	}

	docs := make([]*document.Document, 0, len(order))
	for _, docID := range order {
		s := latest[docID]
		if !s.valid {
			continue
		}
		doc, err := document.FromJSON(s.json)
		if err != nil {
			return nil, dberrors.Wrap(err, "decode recovered document")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ListCollections scans baseDir for every (database, collection) pair
// that has ever been written to disk, so Dispatcher.Load can reload
// each one's documents without a separate catalog file — the directory
// layout (baseDir/database/collection/segment_NNN.seg) already is the
// catalog.
func (m *Manager) ListCollections() ([][2]string, error) {
	dbEntries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, dberrors.Wrap(err, "list disk manager base dir")
	}
	var pairs [][2]string
	for _, dbEntry := range dbEntries {
		if !dbEntry.IsDir() {
			continue
		}
		collEntries, err := os.ReadDir(filepath.Join(m.baseDir, dbEntry.Name()))
		if err != nil {
			return nil, dberrors.Wrap(err, "list database dir")
		}
		for _, collEntry := range collEntries {
			if !collEntry.IsDir() {
				continue
			}
			pairs = append(pairs, [2]string{dbEntry.Name(), collEntry.Name()})
		}
	}
	return pairs, nil
}

// Vacuum rewrites (database, collection)'s segment chain into a single
// fresh segment holding only the latest live version of each document,
// discarding tombstones and superseded versions — the on-disk analogue of
// the teacher's heap compaction, generalized from "reclaim one heap file"
// to "reclaim one collection's segment chain". Returns the number of
// documents carried forward into the compacted segment.
func (m *Manager) Vacuum(database, collection string) (int, error) {
	docs, err := m.LoadCollection(database, collection)
	if err != nil {
		return 0, err
	}

	st, err := m.storeFor(database, collection)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	for _, seg := range st.segments {
		if err := seg.close(); err != nil {
			return 0, dberrors.Wrap(err, "close old segment before vacuum")
		}
		if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
			return 0, dberrors.Wrap(err, "remove old segment during vacuum")
		}
	}

	fresh, err := createSegment(st.segmentPath(1), 1)
	if err != nil {
		return 0, dberrors.Wrap(err, "create compacted segment during vacuum")
	}
	st.segments = []*segment{fresh}
	st.active = fresh

	for _, doc := range docs {
		text, err := doc.ToJSON()
		if err != nil {
			return 0, dberrors.Wrap(err, "encode document during vacuum")
		}
		if _, err := fresh.append(diskDocID(doc), text, true, 0); err != nil {
			return 0, dberrors.Wrap(err, "write compacted document during vacuum")
		}
	}
	return len(docs), nil
}

// diskDocID extracts a document's /_id as a string, mirroring the
// memstorage/collection/indexengine packages' own unexported equivalents
// (each package needs its own copy since the field is unexported in
// document.Document and there is no shared "docID" package to import).
func diskDocID(doc *document.Document) string {
	switch {
	case doc.IsString("/_id"):
		v, _ := doc.GetString("/_id")
		return v
	case doc.IsInt64("/_id"):
		v, _ := doc.GetInt64("/_id")
		return strconv.FormatInt(v, 10)
	case doc.IsUint64("/_id"):
		v, _ := doc.GetUint64("/_id")
		return strconv.FormatUint(v, 10)
	default:
		return ""
	}
}

// OpenIndexDB returns the shared bbolt handle backing (database,
// collection)'s disk-kind indexes, opening it on first use. This is
// the memstorage.DiskOpener implementation.
func (m *Manager) OpenIndexDB(database, collection string) (*bbolt.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionKey(database, collection)
	if db, ok := m.diskDBs[key]; ok {
		return db, nil
	}
	dir := m.collectionDir(database, collection)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberrors.Wrap(err, "create collection index dir")
	}
	db, err := bbolt.Open(filepath.Join(dir, "index.db"), 0644, nil)
	if err != nil {
		return nil, dberrors.Wrap(err, "open bbolt index db")
	}
	m.diskDBs[key] = db
	return db, nil
}

// FlushUpTo idempotently records id as the highest WAL id whose
// effects are durable on disk, per spec.md §5's "idempotent disk
// flushes" (a no-op if id is not newer than the last checkpoint).
func (m *Manager) FlushUpTo(id uint64) error {
	return m.checkpoint.flushUpTo(id)
}

// LastFlushed returns the highest WAL id recorded as flushed.
func (m *Manager) LastFlushed() uint64 {
	return m.checkpoint.lastFlushed()
}

// Close closes every open bbolt handle and segment file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, db := range m.diskDBs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, st := range m.stores {
		for _, seg := range st.segments {
			if err := seg.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
