package diskmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobboyms/docengine/internal/document"
)

func mustDoc(t *testing.T, js string) *document.Document {
	t.Helper()
	d, err := document.FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON(%q): %v", js, err)
	}
	return d
}

func TestAppendAndLoadCollection_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if err := mgr.AppendDocument("shop", "orders", "1", mustDoc(t, `{"_id":"1","total":10}`), 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.AppendDocument("shop", "orders", "2", mustDoc(t, `{"_id":"2","total":20}`), 2); err != nil {
		t.Fatalf("append: %v", err)
	}
	// overwrite doc 1 with a newer version
	if err := mgr.AppendDocument("shop", "orders", "1", mustDoc(t, `{"_id":"1","total":99}`), 3); err != nil {
		t.Fatalf("append update: %v", err)
	}
	if err := mgr.DeleteDocument("shop", "orders", "2", 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	mgr2, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	docs, err := mgr2.LoadCollection("shop", "orders")
	if err != nil {
		t.Fatalf("load collection: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1 (doc 2 deleted)", len(docs))
	}
	total, _ := docs[0].GetInt64("/total")
	if total != 99 {
		t.Fatalf("total = %d, want 99 (latest version should win)", total)
	}
}

func TestCheckpoint_FlushUpToIsIdempotentAndPersists(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := mgr.FlushUpTo(5); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := mgr.FlushUpTo(3); err != nil {
		t.Fatalf("flush lower id: %v", err)
	}
	if mgr.LastFlushed() != 5 {
		t.Fatalf("last flushed = %d, want 5 (lower id must not regress it)", mgr.LastFlushed())
	}

	mgr2, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if mgr2.LastFlushed() != 5 {
		t.Fatalf("reopened last flushed = %d, want 5", mgr2.LastFlushed())
	}
}

func TestSegmentRotation_SealsRetiredSegmentAndSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	// a tiny max size forces rotation after the very first record.
	mgr, err := NewManager(dir, int64(segmentHeaderSize+recordHeaderSize+32))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	for i, docID := range []string{"1", "2", "3"} {
		doc := mustDoc(t, `{"_id":"`+docID+`","n":`+itoa(i)+`}`)
		if err := mgr.AppendDocument("shop", "orders", docID, doc, uint64(i+1)); err != nil {
			t.Fatalf("append %s: %v", docID, err)
		}
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "shop", "orders", "segment_001.seg.zst")); err != nil {
		t.Fatalf("expected segment 1 to be sealed/compressed: %v", err)
	}

	mgr2, err := NewManager(dir, int64(segmentHeaderSize+recordHeaderSize+32))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	docs, err := mgr2.LoadCollection("shop", "orders")
	if err != nil {
		t.Fatalf("load collection across compressed+plain segments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestListCollections_FindsEveryPairEverWritten(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.AppendDocument("shop", "orders", "1", mustDoc(t, `{"_id":"1"}`), 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.AppendDocument("shop", "customers", "1", mustDoc(t, `{"_id":"1"}`), 2); err != nil {
		t.Fatalf("append: %v", err)
	}

	pairs, err := mgr.ListCollections()
	if err != nil {
		t.Fatalf("list collections: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2: %v", len(pairs), pairs)
	}
}

func TestVacuum_DropsTombstonesAndSupersededVersions(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.AppendDocument("shop", "orders", "1", mustDoc(t, `{"_id":"1","total":10}`), 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.AppendDocument("shop", "orders", "1", mustDoc(t, `{"_id":"1","total":99}`), 2); err != nil {
		t.Fatalf("append update: %v", err)
	}
	if err := mgr.AppendDocument("shop", "orders", "2", mustDoc(t, `{"_id":"2","total":5}`), 3); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.DeleteDocument("shop", "orders", "2", 4); err != nil {
		t.Fatalf("delete: %v", err)
	}

	kept, err := mgr.Vacuum("shop", "orders")
	if err != nil {
		t.Fatalf("vacuum: %v", err)
	}
	if kept != 1 {
		t.Fatalf("vacuum kept %d docs, want 1", kept)
	}

	docs, err := mgr.LoadCollection("shop", "orders")
	if err != nil {
		t.Fatalf("load after vacuum: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs after vacuum, want 1", len(docs))
	}
	total, _ := docs[0].GetInt64("/total")
	if total != 99 {
		t.Fatalf("total = %d, want 99 (latest version should survive vacuum)", total)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "shop", "orders"))
	if err != nil {
		t.Fatalf("read collection dir: %v", err)
	}
	segCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".seg" {
			segCount++
		}
	}
	if segCount != 1 {
		t.Fatalf("got %d .seg files after vacuum, want 1", segCount)
	}
}

func TestOpenIndexDB_ReturnsSameHandle(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1024*1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer mgr.Close()

	db1, err := mgr.OpenIndexDB("shop", "orders")
	if err != nil {
		t.Fatalf("open index db: %v", err)
	}
	db2, err := mgr.OpenIndexDB("shop", "orders")
	if err != nil {
		t.Fatalf("open index db again: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected the same bbolt handle to be reused")
	}
	if _, err := os.Stat(filepath.Join(dir, "shop", "orders", "index.db")); err != nil {
		t.Fatalf("expected index.db to exist: %v", err)
	}
}
