package indexengine

import (
	"go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/types"
)

// diskEntry is the bbolt value for one encoded key: the set of document
// ids currently sharing that key value. BSON (not JSON or gob) matches
// the encoding the rest of the engine already uses at persistence
// boundaries (see internal/walmgr).
type diskEntry struct {
	DocIDs []string `bson:"doc_ids"`
}

func (ix *Index) insertDisk(key types.Comparable, docID string) error {
	raw := encodeKey(key)
	return ix.diskDB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ix.diskBucket)
		var entry diskEntry
		if existing := b.Get(raw); existing != nil {
			if err := bson.Unmarshal(existing, &entry); err != nil {
				return dberrors.Wrap(err, "decode disk index entry")
			}
		}
		if ix.Unique && len(entry.DocIDs) > 0 {
			return &dberrors.DuplicateKeyError{Index: ix.Name, Key: keyString(key)}
		}
		entry.DocIDs = append(entry.DocIDs, docID)
		out, err := bson.Marshal(entry)
		if err != nil {
			return dberrors.Wrap(err, "encode disk index entry")
		}
		return b.Put(raw, out)
	})
}

func (ix *Index) removeDisk(key types.Comparable, docID string) {
	raw := encodeKey(key)
	_ = ix.diskDB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ix.diskBucket)
		existing := b.Get(raw)
		if existing == nil {
			return nil
		}
		var entry diskEntry
		if err := bson.Unmarshal(existing, &entry); err != nil {
			return nil
		}
		for i, id := range entry.DocIDs {
			if id == docID {
				entry.DocIDs = append(entry.DocIDs[:i], entry.DocIDs[i+1:]...)
				break
			}
		}
		if len(entry.DocIDs) == 0 {
			return b.Delete(raw)
		}
		out, err := bson.Marshal(entry)
		if err != nil {
			return nil
		}
		return b.Put(raw, out)
	})
}
