// Package planner translates a logical plan tree into the physical
// operator tree internal/physop executes, per spec.md §4.5: purely
// structural translation, collapsing Match over Scan into one Scan
// node carrying the predicate, and nothing else — no cost-based
// optimization.
package planner

import (
	"fmt"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/physop"
	"github.com/bobboyms/docengine/internal/types"
)

// NodeKind is a logical plan node's kind, matching spec.md §4.5's node
// list plus the create/drop-index maintenance nodes spec.md §4.3
// implies.
type NodeKind int

const (
	CreateDatabase NodeKind = iota
	DropDatabase
	CreateCollection
	DropCollection
	Scan
	Match
	Merge
	Insert
	Delete
	Update
	Aggregate
	Sort
	Group
	CreateIndex
	DropIndex
	IndexScan
)

// LogicalPlan is one node; fields relevant to other kinds are simply
// left zero. DDL kinds (CreateDatabase..DropCollection) are never
// passed to Translate — memstorage executes them inline against its
// own maps per spec.md §4.7 — but are listed here so the whole node
// set from spec.md §4.5 has one shared representation.
type LogicalPlan struct {
	Kind NodeKind

	Database   string
	Collection string

	Child *LogicalPlan
	Left  *LogicalPlan
	Right *LogicalPlan

	Predicate physop.Expr
	MergeKind physop.MergeKind

	Docs      []*document.Document
	UpdateDoc *document.Document
	Upsert    bool

	AggKind physop.AggregateKind
	AggKey  string

	SortKey  string
	SortDesc bool

	GroupIDKey        string
	GroupAccumulators []physop.GroupAccumulator

	IndexName    string
	IndexKeys    []string
	IndexCompare indexengine.CompareKind
	IndexKind    indexengine.IndexKind
	IndexUnique  bool
	IndexID      indexengine.IndexID

	// ScanIndex/ScanCompare/ScanKey populate an IndexScan node — set
	// only when the dispatcher already resolved a live index matching
	// the filter's field, per spec.md §8 scenario 6.
	ScanIndex   *indexengine.Index
	ScanCompare indexengine.CompareKind
	ScanKey     types.Comparable
}

// Translate materializes plan as a physop.Operator tree.
func Translate(plan *LogicalPlan) (physop.Operator, error) {
	if plan == nil {
		return nil, nil
	}

	switch plan.Kind {
	case Scan:
		return &physop.Scan{Predicate: plan.Predicate}, nil

	case Match:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		if scan, ok := child.(*physop.Scan); ok && scan.Predicate == nil {
			scan.Predicate = plan.Predicate
			return scan, nil
		}
		return &physop.Match{Child: child, Expr: plan.Predicate}, nil

	case Merge:
		left, err := Translate(plan.Left)
		if err != nil {
			return nil, err
		}
		var right physop.Operator
		if plan.MergeKind != physop.MergeNot {
			right, err = Translate(plan.Right)
			if err != nil {
				return nil, err
			}
		}
		return &physop.Merge{Kind: plan.MergeKind, Left: left, Right: right}, nil

	case Insert:
		return &physop.Insert{Docs: plan.Docs}, nil

	case Delete:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		return &physop.Delete{Child: child}, nil

	case Update:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		return &physop.Update{Child: child, UpdateDoc: plan.UpdateDoc, Upsert: plan.Upsert}, nil

	case Aggregate:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		return &physop.Aggregate{Child: child, Kind: plan.AggKind, Key: plan.AggKey}, nil

	case Sort:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		return &physop.Sort{Child: child, Key: plan.SortKey, Desc: plan.SortDesc}, nil

	case Group:
		child, err := Translate(plan.Child)
		if err != nil {
			return nil, err
		}
		return &physop.Group{Child: child, IDKey: plan.GroupIDKey, Accumulators: plan.GroupAccumulators}, nil

	case CreateIndex:
		return &physop.CreateIndex{
			Name:    plan.IndexName,
			Keys:    plan.IndexKeys,
			Compare: plan.IndexCompare,
			Kind:    plan.IndexKind,
			Unique:  plan.IndexUnique,
		}, nil

	case DropIndex:
		return &physop.DropIndex{ID: plan.IndexID}, nil

	case IndexScan:
		return &physop.IndexScan{Index: plan.ScanIndex, Compare: plan.ScanCompare, Key: plan.ScanKey}, nil

	case CreateDatabase, DropDatabase, CreateCollection, DropCollection:
		return nil, dberrors.Newf("planner: %s is DDL and is executed inline by memstorage, not translated", nodeKindName(plan.Kind))

	default:
		return nil, fmt.Errorf("planner: unknown node kind %d", plan.Kind)
	}
}

func nodeKindName(k NodeKind) string {
	switch k {
	case CreateDatabase:
		return "create_database"
	case DropDatabase:
		return "drop_database"
	case CreateCollection:
		return "create_collection"
	case DropCollection:
		return "drop_collection"
	default:
		return "unknown"
	}
}
