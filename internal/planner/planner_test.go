package planner

import (
	"testing"

	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/physop"
	"github.com/bobboyms/docengine/internal/types"
)

func TestTranslate_CollapsesMatchIntoScan(t *testing.T) {
	plan := &LogicalPlan{
		Kind:      Match,
		Predicate: &physop.Compare{Ptr: "/age", Op: physop.ExprGte, Param: "min"},
		Child:     &LogicalPlan{Kind: Scan},
	}
	op, err := Translate(plan)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	scan, ok := op.(*physop.Scan)
	if !ok {
		t.Fatalf("expected Match-over-Scan to collapse into *physop.Scan, got %T", op)
	}
	if scan.Predicate == nil {
		t.Fatalf("expected predicate to be pushed into scan")
	}
}

func TestTranslate_MergeAndDelete(t *testing.T) {
	plan := &LogicalPlan{
		Kind: Delete,
		Child: &LogicalPlan{
			Kind:      Merge,
			MergeKind: physop.MergeAnd,
			Left:      &LogicalPlan{Kind: Scan},
			Right:     &LogicalPlan{Kind: Scan},
		},
	}
	op, err := Translate(plan)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	del, ok := op.(*physop.Delete)
	if !ok {
		t.Fatalf("expected *physop.Delete, got %T", op)
	}
	if _, ok := del.Child.(*physop.Merge); !ok {
		t.Fatalf("expected delete's child to be *physop.Merge, got %T", del.Child)
	}
}

func TestTranslate_IndexScan(t *testing.T) {
	idx := &indexengine.Index{Name: "by_count"}
	plan := &LogicalPlan{
		Kind:        IndexScan,
		ScanIndex:   idx,
		ScanCompare: indexengine.Gte,
		ScanKey:     types.IntKey(90),
	}
	op, err := Translate(plan)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	scan, ok := op.(*physop.IndexScan)
	if !ok {
		t.Fatalf("expected *physop.IndexScan, got %T", op)
	}
	if scan.Index != idx {
		t.Fatalf("expected translated node to carry the same index pointer")
	}
	if scan.Compare != indexengine.Gte {
		t.Fatalf("compare = %v, want Gte", scan.Compare)
	}
	if scan.Key != types.IntKey(90) {
		t.Fatalf("key = %v, want IntKey(90)", scan.Key)
	}
}

func TestTranslate_DDLRejected(t *testing.T) {
	if _, err := Translate(&LogicalPlan{Kind: CreateDatabase}); err == nil {
		t.Fatalf("expected DDL nodes to be rejected by Translate")
	}
}
