// Package indexengine implements secondary indexes over collections:
// an in-memory B+Tree kind (generalizing the teacher's pkg/btree) and an
// on-disk kind backed by go.etcd.io/bbolt, both addressed through one
// range-query surface (spec §4.3).
package indexengine

import (
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/btree"
	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/types"
)

// CompareKind is the predicate shape an index was declared to serve,
// per spec §4.3's compare-type table.
type CompareKind int

const (
	Eq CompareKind = iota
	Ne
	Lt
	Lte
	Gt
	Gte
)

// IndexKind selects the backing store.
type IndexKind int

const (
	Memory IndexKind = iota
	Disk
)

// IndexID identifies an index for maintenance operations (drop, lookup
// by id) independent of its key-tuple shape.
type IndexID uint64

// Index is one secondary index: a key-tuple (ordered JSON Pointers), the
// compare kind it was built to serve, and a backing store mapping
// encoded key values to the set of document ids sharing that value.
type Index struct {
	ID      IndexID
	Name    string
	Keys    []string
	Compare CompareKind
	Kind    IndexKind
	Unique  bool

	dropped atomic.Bool

	mu         sync.RWMutex
	mem        *btree.BPlusTree   // Memory kind: key -> bucket id
	buckets    map[int64][]string // Memory kind: bucket id -> document ids
	bucketOf   map[string]int64   // Memory kind: canonical key string -> bucket id
	nextBucket int64

	diskDB     *bbolt.DB // Disk kind: shared per-collection handle
	diskBucket []byte    // Disk kind: this index's bbolt bucket name
}

func newMemoryIndex(id IndexID, name string, keys []string, cmp CompareKind, unique bool) *Index {
	return &Index{
		ID:       id,
		Name:     name,
		Keys:     keys,
		Compare:  cmp,
		Kind:     Memory,
		Unique:   unique,
		mem:      btree.NewTree(32),
		buckets:  make(map[int64][]string),
		bucketOf: make(map[string]int64),
	}
}

func newDiskIndex(id IndexID, name string, keys []string, cmp CompareKind, unique bool, db *bbolt.DB) (*Index, error) {
	bucketName := []byte("idx_" + name)
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, dberrors.Wrap(err, "create disk index bucket")
	}
	return &Index{
		ID:         id,
		Name:       name,
		Keys:       keys,
		Compare:    cmp,
		Kind:       Disk,
		Unique:     unique,
		diskDB:     db,
		diskBucket: bucketName,
	}, nil
}

// Dropped reports whether Drop has marked this index for cleanup.
func (ix *Index) Dropped() bool { return ix.dropped.Load() }

func keyString(k types.Comparable) string {
	if s, ok := k.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// insertOne adds docID under key, enforcing uniqueness for unique indexes.
func (ix *Index) insertOne(key types.Comparable, docID string) error {
	if ix.Kind == Disk {
		return ix.insertDisk(key, docID)
	}
	return ix.insertMemory(key, docID)
}

func (ix *Index) insertMemory(key types.Comparable, docID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	canon := keyString(key)
	bid, ok := ix.bucketOf[canon]
	if !ok {
		bid = ix.nextBucket
		ix.nextBucket++
		ix.bucketOf[canon] = bid
		if err := ix.mem.Insert(key, bid); err != nil {
			return err
		}
	}
	if ix.Unique && len(ix.buckets[bid]) > 0 {
		return &dberrors.DuplicateKeyError{Index: ix.Name, Key: canon}
	}
	ix.buckets[bid] = append(ix.buckets[bid], docID)
	return nil
}

// removeOne deletes docID from key's bucket, dropping the key entirely
// (from the tree and the bucket map) once its last document is gone.
func (ix *Index) removeOne(key types.Comparable, docID string) {
	if ix.Kind == Disk {
		ix.removeDisk(key, docID)
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	canon := keyString(key)
	bid, ok := ix.bucketOf[canon]
	if !ok {
		return
	}
	list := ix.buckets[bid]
	for i, id := range list {
		if id == docID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(ix.buckets, bid)
		delete(ix.bucketOf, canon)
		ix.mem.Remove(key)
		return
	}
	ix.buckets[bid] = list
}
