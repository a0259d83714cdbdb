package memstorage

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/physop"
	"github.com/bobboyms/docengine/internal/planner"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(zerolog.Nop(), nil)
}

func mustDoc(t *testing.T, js string) *document.Document {
	t.Helper()
	d, err := document.FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON(%q): %v", js, err)
	}
	return d
}

func TestDDL_CreateAndDropRoundTrip(t *testing.T) {
	s := newTestService(t)
	if err := s.CreateDatabase("shop"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.CreateDatabase("shop"); err == nil {
		t.Fatalf("expected duplicate database error")
	}
	if err := s.CreateCollection("shop", "orders"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if _, err := s.Collection("shop", "orders"); err != nil {
		t.Fatalf("expected collection to exist: %v", err)
	}
	if err := s.DropCollection("shop", "orders"); err != nil {
		t.Fatalf("drop collection: %v", err)
	}
	if _, err := s.Collection("shop", "orders"); err == nil {
		t.Fatalf("expected collection to be gone after drop")
	}
}

func TestExecutePlan_InsertAndFind(t *testing.T) {
	s := newTestService(t)
	if err := s.CreateDatabase("shop"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.CreateCollection("shop", "orders"); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	insertPlan := &planner.LogicalPlan{
		Kind: planner.Insert,
		Docs: []*document.Document{mustDoc(t, `{"_id":"1","total":42}`)},
	}
	res, err := s.ExecutePlan(&Statement{
		Kind: planner.Insert, Database: "shop", Collection: "orders",
		Plan: insertPlan, Params: map[string]interface{}{}, Limit: -1,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Size != 1 {
		t.Fatalf("size = %d, want 1", res.Size)
	}

	findPlan := &planner.LogicalPlan{
		Kind:      planner.Match,
		Predicate: &physop.Compare{Ptr: "/total", Op: physop.ExprEq, Param: "total"},
		Child:     &planner.LogicalPlan{Kind: planner.Scan},
	}
	res, err = s.ExecutePlan(&Statement{
		Kind: planner.Match, Database: "shop", Collection: "orders",
		Plan: findPlan, Params: map[string]interface{}{"total": int64(42)}, Limit: -1,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(res.Docs))
	}
}

func TestSizeAndCloseCursor_RouteThroughExecutor(t *testing.T) {
	s := newTestService(t)
	if err := s.CreateDatabase("shop"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.CreateCollection("shop", "orders"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	insertPlan := &planner.LogicalPlan{
		Kind: planner.Insert,
		Docs: []*document.Document{mustDoc(t, `{"_id":"1","total":42}`)},
	}
	if _, err := s.ExecutePlan(&Statement{
		Kind: planner.Insert, Database: "shop", Collection: "orders",
		Plan: insertPlan, Params: map[string]interface{}{}, Limit: -1,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	size, err := s.Size("shop", "orders")
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}

	res, err := s.ExecutePlanCursor(&Statement{
		Kind: planner.Scan, Database: "shop", Collection: "orders",
		Plan: &planner.LogicalPlan{Kind: planner.Scan}, Params: map[string]interface{}{}, Limit: -1,
	})
	if err != nil {
		t.Fatalf("scan with cursor: %v", err)
	}
	if err := s.CloseCursor("shop", "orders", res.Cursor); err != nil {
		t.Fatalf("close cursor: %v", err)
	}
}

func TestExecutePlan_UnknownCollection(t *testing.T) {
	s := newTestService(t)
	_, err := s.ExecutePlan(&Statement{
		Kind: planner.Scan, Database: "missing", Collection: "missing",
		Plan: &planner.LogicalPlan{Kind: planner.Scan}, Params: map[string]interface{}{}, Limit: -1,
	})
	if err == nil {
		t.Fatalf("expected error for unknown collection")
	}
}
