package collection

import (
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

func TestInsertDoc_GeneratesIDWhenAbsent(t *testing.T) {
	c := New("db", "widgets", nil)
	doc := mustDoc(t, `{"name":"gizmo"}`)
	if err := c.InsertDoc(doc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !doc.IsString("/_id") {
		t.Fatalf("expected a generated string _id")
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestInsertDoc_PreservesInsertionOrder(t *testing.T) {
	c := New("db", "widgets", nil)
	for _, js := range []string{`{"_id":"c","n":3}`, `{"_id":"a","n":1}`, `{"_id":"b","n":2}`} {
		if err := c.InsertDoc(mustDoc(t, js)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	docs := c.Documents()
	want := []string{"c", "a", "b"}
	for i, d := range docs {
		id, _ := d.GetString("/_id")
		if id != want[i] {
			t.Fatalf("docs[%d] id = %q, want %q", i, id, want[i])
		}
	}
}

func TestDeleteDoc_RemovesFromOrderAndMap(t *testing.T) {
	c := New("db", "widgets", nil)
	_ = c.InsertDoc(mustDoc(t, `{"_id":"1"}`))
	_ = c.InsertDoc(mustDoc(t, `{"_id":"2"}`))
	if err := c.DeleteDoc("1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
	if _, ok := c.DocByID("1"); ok {
		t.Fatalf("expected doc 1 to be gone")
	}
}

func TestDroppedCollection_RejectsWrites(t *testing.T) {
	c := New("db", "widgets", nil)
	c.Dropped.Store(true)
	if err := c.InsertDoc(mustDoc(t, `{"_id":"1"}`)); err == nil {
		t.Fatalf("expected insert on dropped collection to fail")
	}
}

func TestCursor_SeeksAndAdvances(t *testing.T) {
	c := New("db", "widgets", nil)
	for _, id := range []string{"a", "b", "c"} {
		_ = c.InsertDoc(mustDoc(t, `{"_id":"`+id+`"}`))
	}
	sid, err := c.OpenCursor()
	if err != nil {
		t.Fatalf("open cursor: %v", err)
	}
	cur, ok := c.Cursor(sid)
	if !ok {
		t.Fatalf("expected cursor to be registered")
	}
	if !cur.Seek("b") || cur.Current() != "b" {
		t.Fatalf("expected seek to land on b")
	}
	if !cur.Next() || cur.Current() != "c" {
		t.Fatalf("expected next to land on c")
	}
	if cur.Next() {
		t.Fatalf("expected next past end to return false")
	}

	c.CloseCursor(sid)
	if _, ok := c.Cursor(sid); ok {
		t.Fatalf("expected cursor to be removed after close")
	}
}
