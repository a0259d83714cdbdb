package document

import "github.com/bobboyms/docengine/internal/trie"

// Move relocates the subtree at from to to, atomically within this
// document: remove then set. If the remove fails, to is left untouched.
func (d *Document) Move(from, to string) error {
	node, err := d.resolvePointer(from)
	if err != nil {
		return err
	}
	if err := d.Remove(from); err != nil {
		return err
	}
	return d.setNode(to, node)
}

// Copy deep-copies the subtree at from and attaches the copy at to.
func (d *Document) Copy(from, to string) error {
	src, err := d.resolvePointer(from)
	if err != nil {
		return err
	}
	copied, err := d.deepCopyNode(src, d)
	if err != nil {
		return err
	}
	return d.setNode(to, copied)
}

// Merge produces a new document whose trie is the union of a and b, with
// b winning on conflicts. Sub-trees present only on one side are deep-
// copied once into the result; sub-trees that recurse on both sides are
// merged key by key.
func Merge(a, b *Document) (*Document, error) {
	out := New()
	rootCopy, err := out.deepCopyNode(a.root, a)
	if err != nil {
		return nil, err
	}
	out.root = rootCopy
	if err := out.mergeObjectInto(out.root, b, b.root); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeObjectInto merges src's keys (from srcDoc) into dst, an object
// node already owned by d (the output document under construction).
func (d *Document) mergeObjectInto(dst *trie.Node, srcDoc *Document, src *trie.Node) error {
	if src.Kind() != trie.Object || dst.Kind() != trie.Object {
		return nil
	}
	for _, key := range src.Keys() {
		srcChild, _ := src.Get(key)
		if dstChild, ok := dst.Get(key); ok &&
			dstChild.Kind() == trie.Object && srcChild.Kind() == trie.Object {
			if err := d.mergeObjectInto(dstChild, srcDoc, srcChild); err != nil {
				return err
			}
			continue
		}
		copied, err := d.deepCopyNode(srcChild, srcDoc)
		if err != nil {
			return err
		}
		dst.Set(key, copied)
	}
	return nil
}
