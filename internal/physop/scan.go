package physop

// Scan emits every document of the collection in insertion order,
// generalized from the teacher's HeapIterator/cursor scan idiom
// (pkg/storage/cursor.go's forward Next() walk) to the in-memory
// document map. Predicate, if set, is pushed down so a planner that
// collapses Match→Scan doesn't need a separate Match node.
type Scan struct {
	base
	Predicate Expr
}

func (s *Scan) Execute(ctx *ExecContext) error {
	s.out = s.out[:0]
	for _, doc := range ctx.Source.Documents() {
		if ctx.Limit.Exhausted() {
			break
		}
		if s.Predicate != nil {
			ok, err := s.Predicate.Eval(doc, ctx.Params)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if !ctx.Limit.Take() {
			break
		}
		s.out = append(s.out, doc)
	}
	return nil
}
