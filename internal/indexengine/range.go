package indexengine

import (
	"bytes"

	"go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/bobboyms/docengine/internal/btree"
	"github.com/bobboyms/docengine/internal/types"
)

// Range returns the document ids whose indexed key matches cmp against
// value, per spec §4.3's range-semantics table:
//
//	eq:  {v}
//	ne:  lower_bound(v) ∪ upper_bound(v)   (everything but the equal band)
//	lt:  lower_bound(v)                    (strictly below)
//	lte: lower_bound(v) ∪ {v}
//	gt:  upper_bound(v)                    (strictly above)
//	gte: {v} ∪ upper_bound(v)
func (ix *Index) Range(cmp CompareKind, value types.Comparable) ([]string, error) {
	if ix.Kind == Disk {
		return ix.rangeDisk(cmp, value)
	}
	return ix.rangeMemory(cmp, value)
}

// rangeMemory walks the B+Tree leaf chain with lock-coupling, grounded
// on the teacher's pkg/query/scan.go ScanCondition/Matches/ShouldSeek/
// ShouldContinue shape (ported here against types.Comparable keys and a
// bucket-id data pointer instead of a heap offset).
func (ix *Index) rangeMemory(cmp CompareKind, value types.Comparable) ([]string, error) {
	var start types.Comparable
	var match, cont func(k types.Comparable) bool

	switch cmp {
	case Eq:
		start = value
		match = func(k types.Comparable) bool { return k.Compare(value) == 0 }
		cont = func(k types.Comparable) bool { return k.Compare(value) <= 0 }
	case Ne:
		start = nil
		match = func(k types.Comparable) bool { return k.Compare(value) != 0 }
		cont = func(types.Comparable) bool { return true }
	case Lt:
		start = nil
		match = func(k types.Comparable) bool { return k.Compare(value) < 0 }
		cont = func(k types.Comparable) bool { return k.Compare(value) < 0 }
	case Lte:
		start = nil
		match = func(k types.Comparable) bool { return k.Compare(value) <= 0 }
		cont = func(k types.Comparable) bool { return k.Compare(value) <= 0 }
	case Gt:
		start = value
		match = func(k types.Comparable) bool { return k.Compare(value) > 0 }
		cont = func(types.Comparable) bool { return true }
	case Gte:
		start = value
		match = func(k types.Comparable) bool { return k.Compare(value) >= 0 }
		cont = func(types.Comparable) bool { return true }
	default:
		match = func(types.Comparable) bool { return false }
		cont = func(types.Comparable) bool { return false }
	}

	bucketIDs := scanBucketIDs(ix.mem, start, match, cont)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []string
	for _, bid := range bucketIDs {
		out = append(out, ix.buckets[bid]...)
	}
	return out, nil
}

// scanBucketIDs walks the leaf chain starting at the lower bound of
// start (or the whole tree's first leaf when start is nil), releasing
// each leaf's latch only after coupling to its right sibling — the same
// lock-coupling discipline FindLeafLowerBound documents for cursors.
func scanBucketIDs(tree *btree.BPlusTree, start types.Comparable, match, cont func(types.Comparable) bool) []int64 {
	leaf, idx := tree.FindLeafLowerBound(start)
	var out []int64
	for leaf != nil {
		stop := false
		for ; idx < leaf.N; idx++ {
			k := leaf.Keys[idx]
			if !cont(k) {
				stop = true
				break
			}
			if match(k) {
				out = append(out, leaf.DataPtrs[idx])
			}
		}
		next := leaf.Next
		leaf.RUnlock()
		if stop || next == nil {
			break
		}
		next.RLock()
		leaf = next
		idx = 0
	}
	return out
}

func (ix *Index) rangeDisk(cmp CompareKind, value types.Comparable) ([]string, error) {
	target := encodeKey(value)
	var out []string
	err := ix.diskDB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ix.diskBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			cmpRes := bytes.Compare(k, target)
			var include bool
			switch cmp {
			case Eq:
				include = cmpRes == 0
			case Ne:
				include = cmpRes != 0
			case Lt:
				include = cmpRes < 0
			case Lte:
				include = cmpRes <= 0
			case Gt:
				include = cmpRes > 0
			case Gte:
				include = cmpRes >= 0
			}
			if !include {
				continue
			}
			var entry diskEntry
			if err := bson.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, entry.DocIDs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
