package physop

import "github.com/bobboyms/docengine/internal/document"

// MergeKind selects the set operation a Merge node performs.
type MergeKind int

const (
	MergeAnd MergeKind = iota
	MergeOr
	MergeNot
)

// Merge combines Left and Right operator outputs by document id:
// And intersects (walking whichever side is smaller, probing the
// larger by id — spec.md §4.4), Or unions, Not complements Left
// against every document the collection scan would produce (Right is
// unused for Not). The limit budget is consulted before probing the
// right-hand side at all, per spec.md's "Merge operators consult the
// budget before probing the right-hand side".
type Merge struct {
	base
	Kind  MergeKind
	Left  Operator
	Right Operator
}

func (m *Merge) Execute(ctx *ExecContext) error {
	if err := m.Left.Execute(ctx); err != nil {
		return err
	}
	left := m.Left.Output()

	if m.Kind == MergeNot {
		excluded := idSet(left)
		m.out = m.out[:0]
		for _, doc := range ctx.Source.Documents() {
			if ctx.Limit.Exhausted() {
				break
			}
			if _, ok := excluded[docID(doc)]; ok {
				continue
			}
			if !ctx.Limit.Take() {
				break
			}
			m.out = append(m.out, doc)
		}
		return nil
	}

	if ctx.Limit.Exhausted() {
		m.out = m.out[:0]
		return nil
	}
	if err := m.Right.Execute(ctx); err != nil {
		return err
	}
	right := m.Right.Output()

	smaller, larger := left, right
	if len(right) < len(left) {
		smaller, larger = right, left
	}
	largeSet := idSet(larger)

	m.out = m.out[:0]
	switch m.Kind {
	case MergeAnd:
		for _, doc := range smaller {
			if ctx.Limit.Exhausted() {
				break
			}
			if _, ok := largeSet[docID(doc)]; !ok {
				continue
			}
			if !ctx.Limit.Take() {
				break
			}
			m.out = append(m.out, doc)
		}
	case MergeOr:
		seen := make(map[string]bool, len(left)+len(right))
		for _, doc := range append(append([]*document.Document{}, left...), right...) {
			if ctx.Limit.Exhausted() {
				break
			}
			id := docID(doc)
			if seen[id] {
				continue
			}
			seen[id] = true
			if !ctx.Limit.Take() {
				break
			}
			m.out = append(m.out, doc)
		}
	}
	return nil
}

func idSet(docs []*document.Document) map[string]struct{} {
	s := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		s[docID(d)] = struct{}{}
	}
	return s
}
