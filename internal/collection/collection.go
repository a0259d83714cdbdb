// Package collection owns one collection's documents, its secondary
// index engine, and the cursor table bound to client sessions.
package collection

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/physop"
)

// Context owns document storage (an insertion-ordered mapping from
// document-id to document reference, generalizing the teacher's
// Table.Heap map-of-documents idea but correctly ordered), the index
// engine, the cursor table, the allocator, and the drop flag.
//
// Physical-plan execution against a collection runs single-threaded
// within the collection's own executor goroutine (see
// internal/memstorage), so Context needs no internal lock beyond the
// dropped flag — it is "linearized by the executor's mailbox" per
// spec.md §5, not by a mutex here.
type Context struct {
	Database string
	Name     string

	docs  map[string]*document.Document
	order []string

	index   *indexengine.Engine
	cursors map[uuid.UUID]*Cursor
	alloc   *document.Allocator

	Dropped atomic.Bool
}

// New creates an empty collection context. diskDB is the bbolt handle
// backing Disk-kind indexes created over this collection; nil if none
// are ever requested (memstorage opens it lazily on first use).
func New(database, name string, diskDB *bbolt.DB) *Context {
	return &Context{
		Database: database,
		Name:     name,
		docs:     make(map[string]*document.Document),
		order:    make([]string, 0),
		index:    indexengine.NewEngine(diskDB),
		cursors:  make(map[uuid.UUID]*Cursor),
		alloc:    document.NewAllocator(),
	}
}

func (c *Context) checkDropped() error {
	if c.Dropped.Load() {
		return &dberrors.CollectionDroppedError{Database: c.Database, Collection: c.Name}
	}
	return nil
}

// Documents returns every document in insertion order.
func (c *Context) Documents() []*document.Document {
	out := make([]*document.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.docs[id])
	}
	return out
}

// DocByID looks up a document by id.
func (c *Context) DocByID(id string) (*document.Document, bool) {
	d, ok := c.docs[id]
	return d, ok
}

// Index returns the collection's secondary index engine.
func (c *Context) Index() *indexengine.Engine { return c.index }

// Allocator returns the collection's pooled buffer allocator.
func (c *Context) Allocator() *document.Allocator { return c.alloc }

// Size returns the number of live documents.
func (c *Context) Size() int { return len(c.order) }

// InsertDoc adds doc to storage under its "/_id" field, generating a
// fresh uuid v7 id (the teacher's GenerateKey idiom, pkg/storage/
// engine.go) when the field is absent.
func (c *Context) InsertDoc(doc *document.Document) error {
	if err := c.checkDropped(); err != nil {
		return err
	}
	if !doc.IsString("/_id") && !doc.IsInt64("/_id") && !doc.IsUint64("/_id") {
		id, err := uuid.NewV7()
		if err != nil {
			return dberrors.Wrap(err, "generate document id")
		}
		if err := doc.Set("/_id", id.String()); err != nil {
			return err
		}
	}
	id := idOf(doc)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
	return nil
}

// DeleteDoc removes a document by id.
func (c *Context) DeleteDoc(id string) error {
	if err := c.checkDropped(); err != nil {
		return err
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func idOf(doc *document.Document) string {
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

// OpenCursor snapshots the collection's current id order and returns a
// fresh session id bound to it, grounded on the teacher's GenerateKey
// uuid v7 idiom so cursor ids sort roughly by creation time.
func (c *Context) OpenCursor() (uuid.UUID, error) {
	if err := c.checkDropped(); err != nil {
		return uuid.UUID{}, err
	}
	sid, err := uuid.NewV7()
	if err != nil {
		return uuid.UUID{}, dberrors.Wrap(err, "generate cursor session id")
	}
	c.cursors[sid] = newCursor(c.order)
	return sid, nil
}

// OpenCursorOn is OpenCursor over an explicit id set rather than the
// whole collection, used by the executor to bind a cursor to exactly
// the documents a Find's match expression selected instead of every
// live document.
func (c *Context) OpenCursorOn(ids []string) (uuid.UUID, error) {
	if err := c.checkDropped(); err != nil {
		return uuid.UUID{}, err
	}
	sid, err := uuid.NewV7()
	if err != nil {
		return uuid.UUID{}, dberrors.Wrap(err, "generate cursor session id")
	}
	c.cursors[sid] = newCursor(ids)
	return sid, nil
}

// Cursor returns the open cursor bound to sid, if any.
func (c *Context) Cursor(sid uuid.UUID) (*Cursor, bool) {
	cur, ok := c.cursors[sid]
	return cur, ok
}

// CloseCursor releases the cursor bound to sid, if one is open.
func (c *Context) CloseCursor(sid uuid.UUID) {
	if cur, ok := c.cursors[sid]; ok {
		cur.Close()
		delete(c.cursors, sid)
	}
}

var _ physop.Source = (*Context)(nil)
