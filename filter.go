package docengine

import (
	"fmt"

	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/physop"
	"github.com/bobboyms/docengine/internal/types"
)

// FilterOp is a Filter node's kind, mirroring physop.Expr's leaf/union
// shape (spec.md §4.4) but serializable: a Filter is what travels on
// the wire and into the WAL, where physop.Expr only ever lives inside
// one already-translated in-memory plan.
type FilterOp int

const (
	FilterEq FilterOp = iota
	FilterNe
	FilterLt
	FilterLte
	FilterGt
	FilterGte
	FilterRegex
	FilterAnd
	FilterOr
	FilterNot
)

// Filter is one node of a caller-supplied match expression. Leaves
// carry the field pointer and a literal comparison value; unions carry
// children. Filter is BSON-tagged so the same value serializes
// directly into a WAL record body for delete/update statement replay.
type Filter struct {
	Op       FilterOp    `bson:"op"`
	Ptr      string      `bson:"ptr,omitempty"`
	Value    interface{} `bson:"value,omitempty"`
	Children []Filter    `bson:"children,omitempty"`
}

// Eq, Ne, Lt, Lte, Gt, Gte build a single comparison leaf.
func Eq(ptr string, value interface{}) Filter  { return Filter{Op: FilterEq, Ptr: ptr, Value: value} }
func Ne(ptr string, value interface{}) Filter  { return Filter{Op: FilterNe, Ptr: ptr, Value: value} }
func Lt(ptr string, value interface{}) Filter  { return Filter{Op: FilterLt, Ptr: ptr, Value: value} }
func Lte(ptr string, value interface{}) Filter { return Filter{Op: FilterLte, Ptr: ptr, Value: value} }
func Gt(ptr string, value interface{}) Filter  { return Filter{Op: FilterGt, Ptr: ptr, Value: value} }
func Gte(ptr string, value interface{}) Filter { return Filter{Op: FilterGte, Ptr: ptr, Value: value} }

// Regexp builds a leaf matching the string field at ptr against pattern.
func Regexp(ptr, pattern string) Filter {
	return Filter{Op: FilterRegex, Ptr: ptr, Value: pattern}
}

// And, Or build a union over children.
func And(children ...Filter) Filter { return Filter{Op: FilterAnd, Children: children} }
func Or(children ...Filter) Filter  { return Filter{Op: FilterOr, Children: children} }

// NotFilter negates child, named to avoid colliding with the stdlib-ish
// "Not" identifier callers might otherwise expect as a bool helper.
func NotFilter(child Filter) Filter { return Filter{Op: FilterNot, Children: []Filter{child}} }

// toExpr lowers a Filter tree into a physop.Expr tree plus the params
// map it references, assigning each leaf a fresh synthetic parameter
// name — physop.Compare resolves values from a side-band params map
// rather than carrying them inline so a single translated plan stays
// parameter-free and reusable (spec.md §4.4).
func (f Filter) toExpr(params map[string]interface{}, next *int) (physop.Expr, error) {
	switch f.Op {
	case FilterEq, FilterNe, FilterLt, FilterLte, FilterGt, FilterGte:
		name := fmt.Sprintf("p%d", *next)
		*next++
		params[name] = f.Value
		return &physop.Compare{Ptr: f.Ptr, Op: filterOpToCompareOp(f.Op), Param: name}, nil

	case FilterRegex:
		name := fmt.Sprintf("p%d", *next)
		*next++
		params[name] = f.Value
		return &physop.Regex{Ptr: f.Ptr, Param: name}, nil

	case FilterAnd:
		children, err := toExprSlice(f.Children, params, next)
		if err != nil {
			return nil, err
		}
		return &physop.And{Children: children}, nil

	case FilterOr:
		children, err := toExprSlice(f.Children, params, next)
		if err != nil {
			return nil, err
		}
		return &physop.Or{Children: children}, nil

	case FilterNot:
		if len(f.Children) != 1 {
			return nil, fmt.Errorf("docengine: FilterNot requires exactly one child, got %d", len(f.Children))
		}
		child, err := f.Children[0].toExpr(params, next)
		if err != nil {
			return nil, err
		}
		return &physop.Not{Child: child}, nil

	default:
		return nil, fmt.Errorf("docengine: unknown filter op %d", f.Op)
	}
}

func toExprSlice(filters []Filter, params map[string]interface{}, next *int) ([]physop.Expr, error) {
	out := make([]physop.Expr, 0, len(filters))
	for _, child := range filters {
		expr, err := child.toExpr(params, next)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// buildExpr translates filter into a physop.Expr plus a fresh params
// map, the shape every find/delete/update entry point needs.
func buildExpr(filter Filter) (physop.Expr, map[string]interface{}, error) {
	params := make(map[string]interface{})
	next := 0
	expr, err := filter.toExpr(params, &next)
	if err != nil {
		return nil, nil, err
	}
	return expr, params, nil
}

func filterOpToCompareOp(op FilterOp) physop.CompareOp {
	switch op {
	case FilterEq:
		return physop.ExprEq
	case FilterNe:
		return physop.ExprNe
	case FilterLt:
		return physop.ExprLt
	case FilterLte:
		return physop.ExprLte
	case FilterGt:
		return physop.ExprGt
	case FilterGte:
		return physop.ExprGte
	default:
		return physop.ExprEq
	}
}

func filterOpToCompareKind(op FilterOp) (indexengine.CompareKind, bool) {
	switch op {
	case FilterEq:
		return indexengine.Eq, true
	case FilterNe:
		return indexengine.Ne, true
	case FilterLt:
		return indexengine.Lt, true
	case FilterLte:
		return indexengine.Lte, true
	case FilterGt:
		return indexengine.Gt, true
	case FilterGte:
		return indexengine.Gte, true
	default:
		return 0, false
	}
}

// asIndexCompare reports whether filter is a single leaf comparison
// eligible to be answered directly from a live index instead of a
// full scan: exactly one Compare node, no union, with a value this
// index engine can represent as a types.Comparable key.
func (f Filter) asIndexCompare() (ptr string, cmp indexengine.CompareKind, key types.Comparable, ok bool) {
	cmp, ok = filterOpToCompareKind(f.Op)
	if !ok {
		return "", 0, nil, false
	}
	key, ok = indexengine.ValueToKey(f.Value)
	if !ok {
		return "", 0, nil, false
	}
	return f.Ptr, cmp, key, true
}
