// Package tape implements the append-only scalar arena backing one
// document (spec §3 "Tape / tape element"). Scalars are immutable once
// written; string bytes live in a side heap so elements stay fixed size.
package tape

import "fmt"

// PhysicalType is the on-tape representation of a scalar, collapsing
// the logical integer width to the widest physical slot while the
// logical type (see Document's LogicalType) is tracked alongside it.
type PhysicalType uint8

const (
	BoolFalse PhysicalType = iota
	BoolTrue
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Int128
	Float32
	Float64
	String
	Null
)

// LogicalType is the type a caller observes through Document.TypeByKey,
// independent of the physical storage width (spec §3).
type LogicalType uint8

const (
	Invalid LogicalType = iota
	TinyInt
	SmallInt
	Integer
	BigInt
	UTinyInt
	USmallInt
	UInteger
	UBigInt
	HugeInt
	Float
	Double
	StringLiteral
	Boolean
	NA
	Array
	Map
)

// Element is one immutable tape slot. Only the fields relevant to its
// PhysicalType are meaningful; the rest are zero.
type Element struct {
	Physical PhysicalType
	Logical  LogicalType
	I64      int64
	U64      uint64
	F64      float64
	// Int128 is stored as two 64-bit halves; see DESIGN.md for the
	// "hugeint" serialization placeholder this implies.
	HugeHi   int64
	HugeLo   uint64
	strOff   uint32
	strLen   uint32
}

// Ref is a stable handle to one element of a tape. Tapes never
// relocate existing elements, so a Ref stays valid for the tape's
// lifetime (spec §3 invariant: "a leaf node's element pointer is
// always live as long as the node is live").
type Ref uint32

// Tape is the append-only arena for one document's scalars (either the
// immutable tape populated from JSON, or the mutable tape populated by
// subsequent writes — spec §3's "Document" struct keeps one of each).
type Tape struct {
	elements []Element
	strings  []byte
}

// New creates an empty tape with a small initial capacity.
func New() *Tape {
	return &Tape{
		elements: make([]Element, 0, 16),
		strings:  make([]byte, 0, 64),
	}
}

// Get returns the element for ref. Panics on an out-of-range ref, which
// would indicate a trie leaf pointing at a tape it doesn't belong to —
// a programming error, not a recoverable data error.
func (t *Tape) Get(ref Ref) Element {
	return t.elements[ref]
}

// String returns the string bytes referenced by el, which must have
// Physical == String.
func (t *Tape) String(el Element) string {
	return string(t.strings[el.strOff : el.strOff+el.strLen])
}

func (t *Tape) appendString(s string) (off, ln uint32) {
	off = uint32(len(t.strings))
	t.strings = append(t.strings, s...)
	ln = uint32(len(s))
	return
}

func (t *Tape) push(el Element) Ref {
	t.elements = append(t.elements, el)
	return Ref(len(t.elements) - 1)
}

func (t *Tape) AppendNull() Ref {
	return t.push(Element{Physical: Null, Logical: NA})
}

func (t *Tape) AppendBool(v bool) Ref {
	if v {
		return t.push(Element{Physical: BoolTrue, Logical: Boolean})
	}
	return t.push(Element{Physical: BoolFalse, Logical: Boolean})
}

// AppendInt64 appends a signed integer, preserving logical as BigInt;
// callers that know a narrower logical width (e.g. from a parsed JSON
// literal) should set el.Logical after the fact via Retype.
func (t *Tape) AppendInt64(v int64) Ref {
	return t.push(Element{Physical: Int64, Logical: BigInt, I64: v})
}

func (t *Tape) AppendUint64(v uint64) Ref {
	return t.push(Element{Physical: Uint64, Logical: UBigInt, U64: v})
}

func (t *Tape) AppendFloat64(v float64) Ref {
	return t.push(Element{Physical: Float64, Logical: Double, F64: v})
}

// AppendHugeInt appends a 128-bit signed integer as (hi, lo) halves.
// Serialization is lossy per spec §9 (the "hugeint" literal placeholder).
func (t *Tape) AppendHugeInt(hi int64, lo uint64) Ref {
	return t.push(Element{Physical: Int128, Logical: HugeInt, HugeHi: hi, HugeLo: lo})
}

func (t *Tape) AppendString(s string) Ref {
	off, ln := t.appendString(s)
	el := Element{Physical: String, Logical: StringLiteral, strOff: off, strLen: ln}
	return t.push(el)
}

// Retype overrides the logical type of an already-appended element,
// used when a caller later learns a narrower integer width (e.g. a
// value read back as TinyInt rather than the default BigInt).
func (t *Tape) Retype(ref Ref, logical LogicalType) {
	t.elements[ref].Logical = logical
}

func (e Element) String() string {
	return fmt.Sprintf("Element{physical=%d logical=%d}", e.Physical, e.Logical)
}
