package document

import (
	"strings"

	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// updateTarget maps an update-document key to the JSON Pointer it
// addresses: a key starting with "/" is used as a pointer as is, any
// other key names a top-level field.
func updateTarget(key string) string {
	if strings.HasPrefix(key, "/") {
		return key
	}
	return "/" + strings.NewReplacer("~", "~0", "/", "~1").Replace(key)
}

// Update applies a MongoDB-style update document — {"$set": {key: value,
// …}, "$inc": {key: value, …}}, each key a JSON Pointer or a bare
// top-level field name — to d, field by field in the update document's
// key iteration order, and reports whether anything changed.
func (d *Document) Update(updateDoc *Document) (bool, error) {
	changed := false

	if setNode, ok := updateDoc.root.Get("$set"); ok && setNode.Kind() == trie.Object {
		for _, ptr := range setNode.Keys() {
			valNode, _ := setNode.Get(ptr)
			did, err := d.applySet(updateTarget(ptr), updateDoc, valNode)
			if err != nil {
				return changed, err
			}
			changed = changed || did
		}
	}

	if incNode, ok := updateDoc.root.Get("$inc"); ok && incNode.Kind() == trie.Object {
		for _, ptr := range incNode.Keys() {
			valNode, _ := incNode.Get(ptr)
			did, err := d.applyInc(updateTarget(ptr), updateDoc, valNode)
			if err != nil {
				return changed, err
			}
			changed = changed || did
		}
	}

	return changed, nil
}

// applySet writes valNode (owned by updateDoc) at ptr in d, suppressing
// the write when the current value already compares equal.
func (d *Document) applySet(ptr string, updateDoc *Document, valNode *trie.Node) (bool, error) {
	current, err := d.resolvePointer(ptr)
	if err == nil && equalNodes(d, current, updateDoc, valNode) {
		return false, nil
	}
	copied, err := d.deepCopyNode(valNode, updateDoc)
	if err != nil {
		return false, err
	}
	if err := d.setNode(ptr, copied); err != nil {
		return false, err
	}
	return true, nil
}

// applyInc always writes the sum (no equality suppression, per spec): a
// missing target field is treated as the update value itself (i.e. $inc
// initializes an absent field rather than erroring — decision recorded
// in DESIGN.md). Strings concatenate; booleans combine by XOR, which is
// equivalent to addition-then-truncation-to-bool.
func (d *Document) applyInc(ptr string, updateDoc *Document, valNode *trie.Node) (bool, error) {
	incEl := updateDoc.tapeFor(valNode.Origin()).Get(valNode.Ref())
	incTape := updateDoc.tapeFor(valNode.Origin())

	current, err := d.resolvePointer(ptr)
	if err != nil {
		copied, cerr := d.deepCopyNode(valNode, updateDoc)
		if cerr != nil {
			return false, cerr
		}
		if err := d.setNode(ptr, copied); err != nil {
			return false, err
		}
		return true, nil
	}

	curEl := d.tapeFor(current.Origin()).Get(current.Ref())
	curTape := d.tapeFor(current.Origin())

	node, err := d.incCombine(curEl, curTape, incEl, incTape)
	if err != nil {
		return false, err
	}
	if err := d.setNode(ptr, node); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Document) incCombine(cur tape.Element, curTape *tape.Tape, inc tape.Element, incTape *tape.Tape) (*trie.Node, error) {
	if cur.Physical == tape.String && inc.Physical == tape.String {
		ref := d.mutable.AppendString(curTape.String(cur) + incTape.String(inc))
		return trie.NewLeaf(trie.Mutable, ref), nil
	}
	if isBoolPhysical(cur.Physical) && isBoolPhysical(inc.Physical) {
		result := (cur.Physical == tape.BoolTrue) != (inc.Physical == tape.BoolTrue)
		return trie.NewLeaf(trie.Mutable, d.mutable.AppendBool(result)), nil
	}
	curNum, curIsNum := numericValue(cur)
	incNum, incIsNum := numericValue(inc)
	if curIsNum && incIsNum {
		if cur.Logical == tape.Double || cur.Logical == tape.Float ||
			inc.Logical == tape.Double || inc.Logical == tape.Float {
			ref := d.mutable.AppendFloat64(curNum + incNum)
			return trie.NewLeaf(trie.Mutable, ref), nil
		}
		if isUnsignedPhysical(cur.Physical) && isUnsignedPhysical(inc.Physical) {
			ref := d.mutable.AppendUint64(cur.U64 + inc.U64)
			return trie.NewLeaf(trie.Mutable, ref), nil
		}
		ref := d.mutable.AppendInt64(int64(curNum) + int64(incNum))
		return trie.NewLeaf(trie.Mutable, ref), nil
	}
	return d.copyScalar(incTape, inc)
}

func isBoolPhysical(p tape.PhysicalType) bool {
	return p == tape.BoolTrue || p == tape.BoolFalse
}

// UpsertFromUpdate builds a fresh document containing only the $set/$inc
// targets of updateDoc, then ensures /_id exists on the result (a null
// placeholder if updateDoc itself has no /_id target; collection
// insertion replaces a null /_id with a generated id).
func (d *Document) UpsertFromUpdate(updateDoc *Document) (*Document, error) {
	out := New()

	apply := func(key string) error {
		node, ok := updateDoc.root.Get(key)
		if !ok || node.Kind() != trie.Object {
			return nil
		}
		for _, ptr := range node.Keys() {
			valNode, _ := node.Get(ptr)
			copied, err := out.deepCopyNode(valNode, updateDoc)
			if err != nil {
				return err
			}
			target := updateTarget(ptr)
			if err := ensureContainer(out, target); err != nil {
				return err
			}
			if err := out.setNode(target, copied); err != nil {
				return err
			}
		}
		return nil
	}

	if err := apply("$set"); err != nil {
		return nil, err
	}
	if err := apply("$inc"); err != nil {
		return nil, err
	}

	if _, err := out.resolvePointer("/_id"); err != nil {
		if err := out.SetNull("/_id"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ensureContainer creates empty objects along ptr's prefix so a fresh
// UpsertFromUpdate document (which starts as a bare {}) can receive a
// nested $set/$inc target without the caller pre-creating intermediate
// dicts — unlike Set, which never auto-creates containers.
func ensureContainer(d *Document, ptr string) error {
	segs, _, err := splitContainerPointer(ptr)
	if err != nil {
		return err
	}
	cur := d.root
	for _, seg := range segs {
		child, ok := cur.Get(seg)
		if !ok {
			child = trie.NewObject()
			cur.Set(seg, child)
		}
		cur = child
	}
	return nil
}
