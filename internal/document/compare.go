package document

import (
	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// CompareResult is the outcome of Compare.
type CompareResult int

const (
	Less CompareResult = iota - 1
	CmpEqual
	Greater
)

// Compare orders the value at ptr (in d) against the value at otherPtr
// (in other): both missing compares equal, exactly one missing ranks the
// missing side lower, and otherwise values compare by logical type (mixed
// numeric types compare numerically, strings lexicographically).
func (d *Document) Compare(ptr string, other *Document, otherPtr string) (CompareResult, error) {
	aNode, aErr := d.resolvePointer(ptr)
	bNode, bErr := other.resolvePointer(otherPtr)

	switch {
	case aErr != nil && bErr != nil:
		return CmpEqual, nil
	case aErr != nil:
		return Less, nil
	case bErr != nil:
		return Greater, nil
	}
	return compareNodes(d, aNode, other, bNode), nil
}

func compareNodes(aDoc *Document, a *trie.Node, bDoc *Document, b *trie.Node) CompareResult {
	aRank, bRank := typeRank(aDoc, a), typeRank(bDoc, b)
	if aRank != bRank {
		return rankResult(aRank, bRank)
	}

	switch a.Kind() {
	case trie.Object:
		return compareObjects(aDoc, a, bDoc, b)
	case trie.Array:
		return compareArrays(aDoc, a, bDoc, b)
	default:
		return compareScalars(aDoc.tapeFor(a.Origin()).Get(a.Ref()), aDoc.tapeFor(a.Origin()),
			bDoc.tapeFor(b.Origin()).Get(b.Ref()), bDoc.tapeFor(b.Origin()))
	}
}

// typeRank gives a total order across logical kinds so values of
// different kinds compare consistently (spec leaves the cross-kind
// ordering undefined beyond mixed-numeric; this is the decision recorded
// in DESIGN.md). Numeric logical types share one rank so compareScalars
// can compare them by value rather than by width.
func typeRank(doc *Document, n *trie.Node) int {
	switch n.Kind() {
	case trie.Object:
		return 5
	case trie.Array:
		return 4
	}
	el := doc.tapeFor(n.Origin()).Get(n.Ref())
	if _, isNum := numericValue(el); isNum {
		return 3
	}
	switch el.Physical {
	case tape.String:
		return 2
	case tape.BoolTrue, tape.BoolFalse:
		return 1
	default:
		return 0
	}
}

func rankResult(a, b int) CompareResult {
	if a < b {
		return Less
	}
	return Greater
}

func compareObjects(aDoc *Document, a *trie.Node, bDoc *Document, b *trie.Node) CompareResult {
	if a.Len() != b.Len() {
		return rankResult(a.Len(), b.Len())
	}
	for _, key := range a.Keys() {
		aChild, _ := a.Get(key)
		bChild, ok := b.Get(key)
		if !ok {
			return Greater
		}
		if r := compareNodes(aDoc, aChild, bDoc, bChild); r != CmpEqual {
			return r
		}
	}
	return CmpEqual
}

func compareArrays(aDoc *Document, a *trie.Node, bDoc *Document, b *trie.Node) CompareResult {
	if a.Len() != b.Len() {
		return rankResult(a.Len(), b.Len())
	}
	for i, aChild := range a.Elements() {
		bChild, _ := b.At(i)
		if r := compareNodes(aDoc, aChild, bDoc, bChild); r != CmpEqual {
			return r
		}
	}
	return CmpEqual
}

func compareScalars(a tape.Element, aTape *tape.Tape, b tape.Element, bTape *tape.Tape) CompareResult {
	aNum, aIsNum := numericValue(a)
	bNum, bIsNum := numericValue(b)
	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return Less
		case aNum > bNum:
			return Greater
		default:
			return CmpEqual
		}
	}
	if a.Physical == tape.String && b.Physical == tape.String {
		as, bs := aTape.String(a), bTape.String(b)
		switch {
		case as < bs:
			return Less
		case as > bs:
			return Greater
		default:
			return CmpEqual
		}
	}
	if a.Physical == tape.Null && b.Physical == tape.Null {
		return CmpEqual
	}
	if (a.Physical == tape.BoolTrue || a.Physical == tape.BoolFalse) &&
		(b.Physical == tape.BoolTrue || b.Physical == tape.BoolFalse) {
		av, bv := a.Physical == tape.BoolTrue, b.Physical == tape.BoolTrue
		switch {
		case av == bv:
			return CmpEqual
		case !av:
			return Less
		default:
			return Greater
		}
	}
	return CmpEqual
}

func numericValue(el tape.Element) (float64, bool) {
	switch el.Physical {
	case tape.Int8, tape.Int16, tape.Int32, tape.Int64:
		return float64(el.I64), true
	case tape.Uint8, tape.Uint16, tape.Uint32, tape.Uint64:
		return float64(el.U64), true
	case tape.Float32, tape.Float64:
		return el.F64, true
	}
	return 0, false
}

// Equal reports structural equality: same key set per object, same
// length per array, same logical type and value per leaf.
func Equal(a, b *Document) bool {
	return equalNodes(a, a.root, b, b.root)
}

func equalNodes(aDoc *Document, a *trie.Node, bDoc *Document, b *trie.Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case trie.Object:
		if a.Len() != b.Len() {
			return false
		}
		for _, key := range a.Keys() {
			aChild, _ := a.Get(key)
			bChild, ok := b.Get(key)
			if !ok || !equalNodes(aDoc, aChild, bDoc, bChild) {
				return false
			}
		}
		return true
	case trie.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i, aChild := range a.Elements() {
			bChild, _ := b.At(i)
			if !equalNodes(aDoc, aChild, bDoc, bChild) {
				return false
			}
		}
		return true
	default:
		aEl := aDoc.tapeFor(a.Origin()).Get(a.Ref())
		bEl := bDoc.tapeFor(b.Origin()).Get(b.Ref())
		if aEl.Logical != bEl.Logical {
			return false
		}
		return compareScalars(aEl, aDoc.tapeFor(a.Origin()), bEl, bDoc.tapeFor(b.Origin())) == CmpEqual
	}
}
