package document

import (
	"math"

	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// TypeByKey returns the logical type at ptr, or tape.Invalid if the
// pointer is ill-formed or missing.
func (d *Document) TypeByKey(ptr string) tape.LogicalType {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return tape.Invalid
	}
	switch node.Kind() {
	case trie.Object:
		return tape.Map
	case trie.Array:
		return tape.Array
	default:
		return d.tapeFor(node.Origin()).Get(node.Ref()).Logical
	}
}

func (d *Document) IsBool(ptr string) bool   { return d.TypeByKey(ptr) == tape.Boolean }
func (d *Document) IsString(ptr string) bool { return d.TypeByKey(ptr) == tape.StringLiteral }
func (d *Document) IsArray(ptr string) bool  { return d.TypeByKey(ptr) == tape.Array }
func (d *Document) IsDict(ptr string) bool   { return d.TypeByKey(ptr) == tape.Map }

// IsInt64 is true for any signed-integer logical width; unsigned values
// no wider than int64 are also representable, per spec's "same-width-or-
// narrower" rule, so an UBigInt value within range also qualifies.
func (d *Document) IsInt64(ptr string) bool {
	switch d.TypeByKey(ptr) {
	case tape.TinyInt, tape.SmallInt, tape.Integer, tape.BigInt:
		return true
	case tape.UTinyInt, tape.USmallInt, tape.UInteger, tape.UBigInt:
		v, err := d.GetUint64(ptr)
		return err == nil && v <= math.MaxInt64
	}
	return false
}

func (d *Document) IsUint64(ptr string) bool {
	switch d.TypeByKey(ptr) {
	case tape.UTinyInt, tape.USmallInt, tape.UInteger, tape.UBigInt:
		return true
	}
	return false
}

func (d *Document) IsFloat64(ptr string) bool {
	switch d.TypeByKey(ptr) {
	case tape.Float, tape.Double:
		return true
	}
	return false
}

// GetBool returns the boolean at ptr. Behavior is undefined (a false
// zero value) if IsBool(ptr) would be false.
func (d *Document) GetBool(ptr string) (bool, error) {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return false, err
	}
	el := d.tapeFor(node.Origin()).Get(node.Ref())
	return el.Physical == tape.BoolTrue, nil
}

func (d *Document) GetInt64(ptr string) (int64, error) {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return 0, err
	}
	el := d.tapeFor(node.Origin()).Get(node.Ref())
	if isUnsignedPhysical(el.Physical) {
		return int64(el.U64), nil
	}
	return el.I64, nil
}

func (d *Document) GetUint64(ptr string) (uint64, error) {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return 0, err
	}
	el := d.tapeFor(node.Origin()).Get(node.Ref())
	return el.U64, nil
}

func (d *Document) GetFloat64(ptr string) (float64, error) {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return 0, err
	}
	el := d.tapeFor(node.Origin()).Get(node.Ref())
	return el.F64, nil
}

func (d *Document) GetString(ptr string) (string, error) {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return "", err
	}
	t := d.tapeFor(node.Origin())
	return t.String(t.Get(node.Ref())), nil
}

// GetArray returns a sub-document rooted at the array node, or
// (nil, false) if ptr is missing or not an array.
func (d *Document) GetArray(ptr string) (*Document, bool) {
	node, err := d.resolvePointer(ptr)
	if err != nil || node.Kind() != trie.Array {
		return nil, false
	}
	return d.subDocument(node), true
}

// GetDict returns a sub-document rooted at the object node, or
// (nil, false) if ptr is missing or not an object.
func (d *Document) GetDict(ptr string) (*Document, bool) {
	node, err := d.resolvePointer(ptr)
	if err != nil || node.Kind() != trie.Object {
		return nil, false
	}
	return d.subDocument(node), true
}

// Count returns the number of children at ptr if it is an object or
// array, else 0 (including when ptr is missing or ill-formed).
func (d *Document) Count(ptr string) int {
	node, err := d.resolvePointer(ptr)
	if err != nil {
		return 0
	}
	return node.Len()
}
