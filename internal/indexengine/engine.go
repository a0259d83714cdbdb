package indexengine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
)

// Engine owns every secondary index declared over one collection: a
// map from key-tuple to Index (so CreateIndex can detect an existing
// equivalent index) and a map from IndexID to Index (so DropIndex and
// query planning can address an index directly).
type Engine struct {
	mu     sync.RWMutex
	byKeys map[string]*Index
	byID   map[IndexID]*Index
	nextID atomic.Uint64

	diskDB *bbolt.DB // set by NewEngine; nil means Disk-kind indexes are refused
}

// NewEngine returns an empty index engine. diskDB is the bbolt handle
// backing this collection's Disk-kind indexes; it may be nil if the
// collection never requests one (memstorage opens it lazily).
func NewEngine(diskDB *bbolt.DB) *Engine {
	return &Engine{
		byKeys: make(map[string]*Index),
		byID:   make(map[IndexID]*Index),
		diskDB: diskDB,
	}
}

func keysSignature(keys []string) string { return strings.Join(keys, "\x1f") }

// Emplace creates a new index over keys, or returns the existing one if
// an index with the same key-tuple already exists (idempotent create,
// matching the teacher's CreateTable-if-absent idiom in its catalog).
func (e *Engine) Emplace(name string, keys []string, cmp CompareKind, kind IndexKind, unique bool) (*Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sig := keysSignature(keys)
	if existing, ok := e.byKeys[sig]; ok {
		return existing, nil
	}

	id := IndexID(e.nextID.Add(1))
	var ix *Index
	var err error
	switch kind {
	case Disk:
		if e.diskDB == nil {
			return nil, dberrors.Newf("indexengine: disk index %q requested but no disk backing is configured", name)
		}
		ix, err = newDiskIndex(id, name, keys, cmp, unique, e.diskDB)
	default:
		ix = newMemoryIndex(id, name, keys, cmp, unique)
	}
	if err != nil {
		return nil, err
	}

	e.byKeys[sig] = ix
	e.byID[id] = ix
	return ix, nil
}

// Find looks up an index by its exact key-tuple.
func (e *Engine) Find(keys []string) (*Index, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, ok := e.byKeys[keysSignature(keys)]
	return ix, ok
}

// FindByID looks up an index by id.
func (e *Engine) FindByID(id IndexID) (*Index, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, ok := e.byID[id]
	return ix, ok
}

// FindByName looks up an index by its declared name.
func (e *Engine) FindByName(name string) (*Index, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ix := range e.byID {
		if ix.Name == name {
			return ix, true
		}
	}
	return nil, false
}

// All returns every live (non-dropped) index, for query planning.
func (e *Engine) All() []*Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Index, 0, len(e.byID))
	for _, ix := range e.byID {
		if !ix.Dropped() {
			out = append(out, ix)
		}
	}
	return out
}

// docID extracts the document's "/_id" field as a string for use as the
// index's posting-list entry; most key shapes (string, any integer
// width) are representable, anything else is an error since an index
// entry needs a stable, comparable identifier.
func docID(doc *document.Document) (string, error) {
	if doc.IsString("/_id") {
		return doc.GetString("/_id")
	}
	if doc.IsInt64("/_id") {
		v, err := doc.GetInt64("/_id")
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	}
	if doc.IsUint64("/_id") {
		v, err := doc.GetUint64("/_id")
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10), nil
	}
	return "", dberrors.Newf("indexengine: document has no representable /_id field")
}

// Backfill adds doc to this single index, used by CreateIndex to
// populate a freshly declared index from the collection's existing
// documents without touching any other index.
func (ix *Index) Backfill(doc *document.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	key, ok := extractKey(doc, ix.Keys)
	if !ok {
		return nil
	}
	return ix.insertOne(key, id)
}

// Insert adds doc to every live index over this collection. A document
// missing a component of an index's key-tuple is simply skipped for
// that index (spec §4.3: partial documents don't populate an index).
func (e *Engine) Insert(doc *document.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	for _, ix := range e.All() {
		key, ok := extractKey(doc, ix.Keys)
		if !ok {
			continue
		}
		if err := ix.insertOne(key, id); err != nil {
			return fmt.Errorf("index %q: %w", ix.Name, err)
		}
	}
	return nil
}

// InsertBatch inserts each document, stopping at the first error (the
// caller is expected to be inside a single collection-level write that
// it can still roll back at a higher level).
func (e *Engine) InsertBatch(docs []*document.Document) error {
	for _, d := range docs {
		if err := e.Insert(d); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes doc from every live index.
func (e *Engine) Remove(doc *document.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	for _, ix := range e.All() {
		key, ok := extractKey(doc, ix.Keys)
		if !ok {
			continue
		}
		ix.removeOne(key, id)
	}
	return nil
}

// Reindex removes oldDoc's entries and inserts newDoc's, used after an
// Update changes fields participating in an index.
func (e *Engine) Reindex(oldDoc, newDoc *document.Document) error {
	if err := e.Remove(oldDoc); err != nil {
		return err
	}
	return e.Insert(newDoc)
}

// Drop marks an index dropped; its buckets/bbolt bucket are left in
// place for an external vacuum pass to reclaim (spec §4.6).
func (e *Engine) Drop(id IndexID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ix, ok := e.byID[id]
	if !ok {
		return &dberrors.IndexNotFoundError{Name: fmt.Sprintf("id=%d", id)}
	}
	ix.dropped.Store(true)
	delete(e.byID, id)
	delete(e.byKeys, keysSignature(ix.Keys))
	return nil
}
