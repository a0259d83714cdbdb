package indexengine

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/types"
)

func mustDoc(t *testing.T, js string) *document.Document {
	t.Helper()
	d, err := document.FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON(%q): %v", js, err)
	}
	return d
}

func sortedStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

func TestMemoryIndex_UniqueAndRange(t *testing.T) {
	e := NewEngine(nil)
	ix, err := e.Emplace("by_age", []string{"/age"}, Gte, Memory, false)
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	if ix.Kind != Memory {
		t.Fatalf("expected Memory kind")
	}

	docs := []*document.Document{
		mustDoc(t, `{"_id":"a","age":20}`),
		mustDoc(t, `{"_id":"b","age":30}`),
		mustDoc(t, `{"_id":"c","age":30}`),
		mustDoc(t, `{"_id":"d","age":40}`),
	}
	if err := e.InsertBatch(docs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := ix.Range(Eq, types.IntKey(30))
	if err != nil {
		t.Fatalf("Range eq: %v", err)
	}
	if want := []string{"b", "c"}; !equalStrSlices(sortedStrings(got), want) {
		t.Fatalf("Range(Eq,30) = %v, want %v", got, want)
	}

	got, _ = ix.Range(Gt, types.IntKey(20))
	if want := []string{"b", "c", "d"}; !equalStrSlices(sortedStrings(got), want) {
		t.Fatalf("Range(Gt,20) = %v, want %v", got, want)
	}

	got, _ = ix.Range(Lte, types.IntKey(20))
	if want := []string{"a"}; !equalStrSlices(sortedStrings(got), want) {
		t.Fatalf("Range(Lte,20) = %v, want %v", got, want)
	}

	got, _ = ix.Range(Ne, types.IntKey(30))
	if want := []string{"a", "d"}; !equalStrSlices(sortedStrings(got), want) {
		t.Fatalf("Range(Ne,30) = %v, want %v", got, want)
	}
}

func TestMemoryIndex_UniqueViolation(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Emplace("by_email", []string{"/email"}, Eq, Memory, true)
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}

	a := mustDoc(t, `{"_id":"a","email":"x@example.com"}`)
	b := mustDoc(t, `{"_id":"b","email":"x@example.com"}`)

	if err := e.Insert(a); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := e.Insert(b); err == nil {
		t.Fatalf("expected duplicate key error inserting b")
	}
}

func TestMemoryIndex_CompositeKey(t *testing.T) {
	e := NewEngine(nil)
	ix, err := e.Emplace("by_last_first", []string{"/last", "/first"}, Eq, Memory, false)
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}

	docs := []*document.Document{
		mustDoc(t, `{"_id":"1","last":"lovelace","first":"ada"}`),
		mustDoc(t, `{"_id":"2","last":"lovelace","first":"zed"}`),
	}
	if err := e.InsertBatch(docs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	key := types.CompositeKey{types.VarcharKey("lovelace"), types.VarcharKey("ada")}
	got, err := ix.Range(Eq, key)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if want := []string{"1"}; !equalStrSlices(got, want) {
		t.Fatalf("Range composite eq = %v, want %v", got, want)
	}
}

func TestIndex_RemoveAndReindex(t *testing.T) {
	e := NewEngine(nil)
	ix, _ := e.Emplace("by_status", []string{"/status"}, Eq, Memory, false)

	d := mustDoc(t, `{"_id":"1","status":"open"}`)
	if err := e.Insert(d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	updated := mustDoc(t, `{"_id":"1","status":"closed"}`)
	if err := e.Reindex(d, updated); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	got, _ := ix.Range(Eq, types.VarcharKey("open"))
	if len(got) != 0 {
		t.Fatalf("expected no docs under old value, got %v", got)
	}
	got, _ = ix.Range(Eq, types.VarcharKey("closed"))
	if want := []string{"1"}; !equalStrSlices(got, want) {
		t.Fatalf("Range(closed) = %v, want %v", got, want)
	}
}

func TestDiskIndex_RangeAndBackingFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "index.db")
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open: %v", err)
	}
	defer db.Close()

	e := NewEngine(db)
	ix, err := e.Emplace("by_score", []string{"/score"}, Gte, Disk, false)
	if err != nil {
		t.Fatalf("Emplace disk index: %v", err)
	}
	if ix.Kind != Disk {
		t.Fatalf("expected Disk kind")
	}

	docs := []*document.Document{
		mustDoc(t, `{"_id":"1","score":10}`),
		mustDoc(t, `{"_id":"2","score":20}`),
		mustDoc(t, `{"_id":"3","score":20}`),
	}
	if err := e.InsertBatch(docs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := ix.Range(Eq, types.IntKey(20))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if want := []string{"2", "3"}; !equalStrSlices(sortedStrings(got), want) {
		t.Fatalf("Range(Eq,20) = %v, want %v", got, want)
	}

	got, _ = ix.Range(Lt, types.IntKey(20))
	if want := []string{"1"}; !equalStrSlices(got, want) {
		t.Fatalf("Range(Lt,20) = %v, want %v", got, want)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected bbolt file to exist: %v", err)
	}
}

func TestEngine_DropIndex(t *testing.T) {
	e := NewEngine(nil)
	ix, err := e.Emplace("by_tag", []string{"/tag"}, Eq, Memory, false)
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	if err := e.Drop(ix.ID); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, ok := e.FindByID(ix.ID); ok {
		t.Fatalf("expected dropped index to be unreachable by id")
	}
	if len(e.All()) != 0 {
		t.Fatalf("expected no live indexes after drop")
	}
}

func equalStrSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
