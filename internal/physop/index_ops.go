package physop

import (
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/types"
)

// IndexScan answers a range predicate directly from a secondary index
// rather than scanning every document, per spec.md §8 scenario 6's
// "the physical plan uses the index (observable via operator trace)".
// Translate only ever produces this node when the dispatcher already
// found a live index whose sole key matches the filter's field.
type IndexScan struct {
	base
	Index   *indexengine.Index
	Compare indexengine.CompareKind
	Key     types.Comparable
}

func (s *IndexScan) Execute(ctx *ExecContext) error {
	s.out = s.out[:0]
	ids, err := s.Index.Range(s.Compare, s.Key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if ctx.Limit.Exhausted() {
			break
		}
		doc, ok := ctx.Source.DocByID(id)
		if !ok {
			continue
		}
		if !ctx.Limit.Take() {
			break
		}
		s.out = append(s.out, doc)
	}
	return nil
}

// CreateIndex builds a new index by scanning every existing document
// in the collection, per spec.md §4.4's "Build/tear-down an index,
// scanning all existing documents during build."
type CreateIndex struct {
	base
	Name    string
	Keys    []string
	Compare indexengine.CompareKind
	Kind    indexengine.IndexKind
	Unique  bool

	Created *indexengine.Index
}

func (c *CreateIndex) Execute(ctx *ExecContext) error {
	_, existed := ctx.Source.Index().Find(c.Keys)
	ix, err := ctx.Source.Index().Emplace(c.Name, c.Keys, c.Compare, c.Kind, c.Unique)
	if err != nil {
		return err
	}
	if !existed {
		for _, doc := range ctx.Source.Documents() {
			if err := ix.Backfill(doc); err != nil {
				return err
			}
		}
	}
	c.Created = ix
	c.out = nil
	return nil
}

// DropIndex marks an index dropped and removes it from the engine's
// lookup maps; its B+Tree or bbolt bucket is left in place and is not
// reclaimed by anything in this module.
type DropIndex struct {
	base
	ID indexengine.IndexID
}

func (d *DropIndex) Execute(ctx *ExecContext) error {
	d.out = nil
	return ctx.Source.Index().Drop(d.ID)
}
