package walmgr

import (
	"path/filepath"
	"testing"
)

type insertBody struct {
	DocID string `bson:"doc_id"`
}

func TestAppendAndReplay_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.DirPath = dir
	opts.SyncPolicy = SyncEveryWrite

	mgr, err := Open(opts, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var ids []uint64
	for _, docID := range []string{"a", "b", "c"} {
		id, err := mgr.Append(EntryInsertOne, "shop", "orders", insertBody{DocID: docID})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "wal.log")
	var replayed []string
	highest, err := Replay(path, 0, func(rec Record) error {
		var b insertBody
		if err := DecodeBody(rec.Body, &b); err != nil {
			return err
		}
		replayed = append(replayed, b.DocID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if highest != ids[len(ids)-1] {
		t.Fatalf("highest = %d, want %d", highest, ids[len(ids)-1])
	}
	if len(replayed) != 3 || replayed[0] != "a" || replayed[2] != "c" {
		t.Fatalf("replayed = %v", replayed)
	}
}

func TestReplay_ResumesAfterID(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.DirPath = dir
	opts.SyncPolicy = SyncEveryWrite

	mgr, err := Open(opts, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var last uint64
	for _, docID := range []string{"a", "b", "c"} {
		last, err = mgr.Append(EntryInsertOne, "shop", "orders", insertBody{DocID: docID})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = mgr.Close()

	path := filepath.Join(dir, "wal.log")
	var replayed []string
	_, err = Replay(path, last-1, func(rec Record) error {
		var b insertBody
		if err := DecodeBody(rec.Body, &b); err != nil {
			return err
		}
		replayed = append(replayed, b.DocID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != "c" {
		t.Fatalf("expected only the last record replayed, got %v", replayed)
	}
}
