package physop

import "github.com/bobboyms/docengine/internal/document"

// Insert appends Docs to the collection storage, updates every
// maintained index, and emits the inserted documents (their ids are
// read back off the documents themselves via docID).
type Insert struct {
	base
	Docs []*document.Document
}

func (in *Insert) Execute(ctx *ExecContext) error {
	in.out = in.out[:0]
	for _, doc := range in.Docs {
		if err := ctx.Source.InsertDoc(doc); err != nil {
			return err
		}
		if err := ctx.Source.Index().Insert(doc); err != nil {
			return err
		}
		in.out = append(in.out, doc)
	}
	return nil
}

// Update runs document.Update ($set/$inc) against every document its
// Child produces. Emits documents whose state changed for a pure
// $set update, or every input document when $inc was present (an
// unconditional write per spec.md's update() semantics). When Child
// produces nothing and Upsert is set, UpsertFromUpdate builds a new
// document from UpdateDoc and inserts it instead.
type Update struct {
	base
	Child     Operator
	UpdateDoc *document.Document
	Upsert    bool
}

func (u *Update) Execute(ctx *ExecContext) error {
	if err := u.Child.Execute(ctx); err != nil {
		return err
	}
	docs := u.Child.Output()
	u.out = u.out[:0]

	if len(docs) == 0 && u.Upsert {
		created, err := u.UpdateDoc.UpsertFromUpdate(u.UpdateDoc)
		if err != nil {
			return err
		}
		if err := ctx.Source.InsertDoc(created); err != nil {
			return err
		}
		if err := ctx.Source.Index().Insert(created); err != nil {
			return err
		}
		u.out = append(u.out, created)
		return nil
	}

	for _, doc := range docs {
		if err := ctx.Source.Index().Remove(doc); err != nil {
			return err
		}
		changed, err := doc.Update(u.UpdateDoc)
		if err != nil {
			return err
		}
		if err := ctx.Source.Index().Insert(doc); err != nil {
			return err
		}
		if changed {
			u.out = append(u.out, doc)
		}
	}
	return nil
}

// Delete removes every document its Child produces from storage and
// from every index.
type Delete struct {
	base
	Child Operator
}

func (d *Delete) Execute(ctx *ExecContext) error {
	if err := d.Child.Execute(ctx); err != nil {
		return err
	}
	d.out = d.out[:0]
	for _, doc := range d.Child.Output() {
		if err := ctx.Source.Index().Remove(doc); err != nil {
			return err
		}
		if err := ctx.Source.DeleteDoc(docID(doc)); err != nil {
			return err
		}
		d.out = append(d.out, doc)
	}
	return nil
}
