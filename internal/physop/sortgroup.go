package physop

import (
	"sort"
	"strconv"

	"github.com/bobboyms/docengine/internal/document"
)

// Sort is supplemented from original_source/services/collection/operators
// (the distillation's logical-plan node list names a `sort` node in
// spec.md §4.5 without a physical counterpart to execute it). Orders
// Child's output by the field at Key using document.Compare, ascending
// unless Desc is set.
type Sort struct {
	base
	Child Operator
	Key   string
	Desc  bool

	err error
}

func (s *Sort) Execute(ctx *ExecContext) error {
	if err := s.Child.Execute(ctx); err != nil {
		return err
	}
	docs := append([]*document.Document(nil), s.Child.Output()...)
	s.err = nil
	sort.SliceStable(docs, func(i, j int) bool {
		res, err := docs[i].Compare(s.Key, docs[j], s.Key)
		if err != nil {
			s.err = err
			return false
		}
		if s.Desc {
			return res == document.Greater
		}
		return res == document.Less
	})
	if s.err != nil {
		return s.err
	}
	s.out = docs
	return nil
}

// GroupAccumulator is one named output field of a Group stage: an
// accumulator kind applied to the field at Key within each group (Key
// is ignored for AggCount).
type GroupAccumulator struct {
	Field string
	Kind  AggregateKind
	Key   string
}

// Group is supplemented from original_source (MongoDB-style $group):
// partitions Child's output by the value at IDKey, applies each
// Accumulator within a partition, and emits one document per group
// carrying "_id" plus every accumulator's named field.
type Group struct {
	base
	Child        Operator
	IDKey        string
	Accumulators []GroupAccumulator
}

func (g *Group) Execute(ctx *ExecContext) error {
	if err := g.Child.Execute(ctx); err != nil {
		return err
	}

	type partition struct {
		keyDoc *document.Document
		docs   []*document.Document
	}
	order := make([]string, 0)
	byKey := make(map[string]*partition)

	for _, doc := range g.Child.Output() {
		var groupKey string
		keyDoc := document.New()
		switch {
		case doc.IsString(g.IDKey):
			v, _ := doc.GetString(g.IDKey)
			groupKey = "s:" + v
			_ = keyDoc.Set("/_id", v)
		case doc.IsInt64(g.IDKey):
			v, _ := doc.GetInt64(g.IDKey)
			groupKey = "i:" + strconv.FormatInt(v, 10)
			_ = keyDoc.Set("/_id", v)
		default:
			groupKey = "null"
			_ = keyDoc.SetNull("/_id")
		}

		p, ok := byKey[groupKey]
		if !ok {
			p = &partition{keyDoc: keyDoc}
			byKey[groupKey] = p
			order = append(order, groupKey)
		}
		p.docs = append(p.docs, doc)
	}

	g.out = g.out[:0]
	for _, k := range order {
		p := byKey[k]
		out := p.keyDoc
		for _, acc := range g.Accumulators {
			child := &childOp{docs: p.docs}
			agg := &Aggregate{Child: child, Kind: acc.Kind, Key: acc.Key}
			if err := agg.Execute(ctx); err != nil {
				return err
			}
			rows := agg.Output()
			if len(rows) != 1 {
				continue
			}
			var err error
			if acc.Kind == AggCount {
				v, e := rows[0].GetInt64("/count")
				err = e
				if e == nil {
					err = out.Set("/"+acc.Field, v)
				}
			} else if rows[0].IsFloat64("/value") {
				v, e := rows[0].GetFloat64("/value")
				err = e
				if e == nil {
					err = out.Set("/"+acc.Field, v)
				}
			}
			if err != nil {
				return err
			}
		}
		g.out = append(g.out, out)
	}
	return nil
}

// childOp adapts a plain document slice into an Operator so Group can
// reuse Aggregate without a real child node.
type childOp struct {
	base
	docs []*document.Document
}

func (c *childOp) Execute(*ExecContext) error {
	c.out = c.docs
	return nil
}
