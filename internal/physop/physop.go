// Package physop implements the pull-based physical operator tree that
// executes against one collection: Scan, Match, Aggregate, Merge,
// Insert, Update, Delete, CreateIndex/DropIndex, Sort and Group.
package physop

import (
	"strconv"

	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
)

// Source is the collection-shaped surface an operator tree executes
// against — satisfied by collection.Context without physop depending
// on it directly (collection imports physop, not the reverse).
type Source interface {
	Documents() []*document.Document
	DocByID(id string) (*document.Document, bool)
	Index() *indexengine.Engine
	InsertDoc(doc *document.Document) error
	DeleteDoc(id string) error
	Allocator() *document.Allocator
}

// LimitBudget mirrors spec.md §4.4's limit_t: {remaining: i64}, -1
// unbounded. Operators decrement after each emitted row and stop
// producing once it reaches zero; Merge consults it before probing its
// right-hand side.
type LimitBudget struct {
	Remaining int64
}

// Unbounded reports whether the budget never exhausts.
func (b *LimitBudget) Unbounded() bool { return b == nil || b.Remaining < 0 }

// Exhausted reports whether the budget has reached zero.
func (b *LimitBudget) Exhausted() bool { return b != nil && b.Remaining == 0 }

// Take decrements the budget for one emitted row and reports whether
// producing it was allowed at all.
func (b *LimitBudget) Take() bool {
	if b == nil || b.Remaining < 0 {
		return true
	}
	if b.Remaining == 0 {
		return false
	}
	b.Remaining--
	return true
}

// ExecContext carries everything an operator needs to run: the
// collection it executes against, the parameter side-band that keeps
// Match's expression tree literal- and plan-cache-friendly, and the
// limit budget shared across the whole tree.
type ExecContext struct {
	Source Source
	Params map[string]interface{}
	Limit  *LimitBudget
}

// Operator is the pull interface every physical node implements:
// Execute populates the node's output buffer, Output returns it.
type Operator interface {
	Execute(ctx *ExecContext) error
	Output() []*document.Document
}

// base holds the output buffer shared by every concrete operator.
type base struct {
	out []*document.Document
}

func (b *base) Output() []*document.Document { return b.out }

func docID(doc *document.Document) string {
	if doc.IsString("/_id") {
		v, _ := doc.GetString("/_id")
		return v
	}
	if doc.IsInt64("/_id") {
		v, _ := doc.GetInt64("/_id")
		return strconv.FormatInt(v, 10)
	}
	if doc.IsUint64("/_id") {
		v, _ := doc.GetUint64("/_id")
		return strconv.FormatUint(v, 10)
	}
	return ""
}
