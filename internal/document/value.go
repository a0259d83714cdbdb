package document

import (
	"fmt"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// buildValueNode appends value to d's mutable tape (scalars) or builds a
// fresh trie subtree (for an embedded *Document), returning a node ready
// to be attached under d.root via Set/SetAt.
func (d *Document) buildValueNode(value interface{}) (*trie.Node, error) {
	switch v := value.(type) {
	case nil:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendNull()), nil
	case bool:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendBool(v)), nil
	case int:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendInt64(int64(v))), nil
	case int32:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendInt64(int64(v))), nil
	case int64:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendInt64(v)), nil
	case uint:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendUint64(uint64(v))), nil
	case uint64:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendUint64(v)), nil
	case float32:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendFloat64(float64(v))), nil
	case float64:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendFloat64(v)), nil
	case string:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendString(v)), nil
	case *Document:
		return d.deepCopyNode(v.root, v)
	default:
		return nil, &dberrors.InvalidTypeError{Want: fmt.Sprintf("%T", value)}
	}
}

// deepCopyNode recursively copies src (owned by srcDoc, possibly this
// same document) into fresh nodes whose leaves live on d's mutable tape.
// Used by Set(ptr, *Document), Copy, and Merge.
func (d *Document) deepCopyNode(src *trie.Node, srcDoc *Document) (*trie.Node, error) {
	switch src.Kind() {
	case trie.Object:
		out := trie.NewObject()
		for _, key := range src.Keys() {
			child, _ := src.Get(key)
			copied, err := d.deepCopyNode(child, srcDoc)
			if err != nil {
				return nil, err
			}
			out.Set(key, copied)
		}
		return out, nil
	case trie.Array:
		out := trie.NewArray()
		for _, child := range src.Elements() {
			copied, err := d.deepCopyNode(child, srcDoc)
			if err != nil {
				return nil, err
			}
			out.Append(copied)
		}
		return out, nil
	default:
		srcTape := srcDoc.tapeFor(src.Origin())
		el := srcTape.Get(src.Ref())
		return d.copyScalar(srcTape, el)
	}
}

func (d *Document) copyScalar(srcTape *tape.Tape, el tape.Element) (*trie.Node, error) {
	switch el.Physical {
	case tape.Null:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendNull()), nil
	case tape.BoolTrue:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendBool(true)), nil
	case tape.BoolFalse:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendBool(false)), nil
	case tape.Int128:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendHugeInt(el.HugeHi, el.HugeLo)), nil
	case tape.String:
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendString(srcTape.String(el))), nil
	case tape.Float32, tape.Float64:
		ref := d.mutable.AppendFloat64(el.F64)
		d.mutable.Retype(ref, el.Logical)
		return trie.NewLeaf(trie.Mutable, ref), nil
	default:
		if isUnsignedPhysical(el.Physical) {
			ref := d.mutable.AppendUint64(el.U64)
			d.mutable.Retype(ref, el.Logical)
			return trie.NewLeaf(trie.Mutable, ref), nil
		}
		ref := d.mutable.AppendInt64(el.I64)
		d.mutable.Retype(ref, el.Logical)
		return trie.NewLeaf(trie.Mutable, ref), nil
	}
}

func isUnsignedPhysical(p tape.PhysicalType) bool {
	switch p {
	case tape.Uint8, tape.Uint16, tape.Uint32, tape.Uint64:
		return true
	}
	return false
}
