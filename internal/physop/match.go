package physop

// Match filters its child's output by an expression tree. The planner
// collapses Match directly over a Scan into a single Scan carrying the
// predicate (spec.md §4.5); a standalone Match remains available for
// filtering the output of any other operator (e.g. a Merge).
type Match struct {
	base
	Child Operator
	Expr  Expr
}

func (m *Match) Execute(ctx *ExecContext) error {
	if err := m.Child.Execute(ctx); err != nil {
		return err
	}
	m.out = m.out[:0]
	for _, doc := range m.Child.Output() {
		if ctx.Limit.Exhausted() {
			break
		}
		ok, err := m.Expr.Eval(doc, ctx.Params)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !ctx.Limit.Take() {
			break
		}
		m.out = append(m.out, doc)
	}
	return nil
}
