package document

import (
	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/trie"
)

// Set writes value at ptr. The last path segment is the key/index in the
// container located at the prefix; the container must already exist
// (no_such_container otherwise) — intermediate objects are never
// auto-created. value may be a scalar (nil, bool, int64, uint64, float64,
// string) or a *Document, deep-copied in.
func (d *Document) Set(ptr string, value interface{}) error {
	node, err := d.buildValueNode(value)
	if err != nil {
		return err
	}
	return d.setNode(ptr, node)
}

func (d *Document) SetNull(ptr string) error {
	return d.Set(ptr, nil)
}

func (d *Document) SetArray(ptr string) error {
	return d.setNode(ptr, trie.NewArray())
}

func (d *Document) SetDict(ptr string) error {
	return d.setNode(ptr, trie.NewObject())
}

// setNode attaches an already-built node at ptr without re-copying it —
// used directly by Set/SetArray/SetDict and by Move/Copy, which need to
// place an existing (or already deep-copied) node verbatim.
func (d *Document) setNode(ptr string, node *trie.Node) error {
	container, lastSeg, err := d.resolveContainer(ptr)
	if err != nil {
		return err
	}
	switch container.Kind() {
	case trie.Object:
		container.Set(lastSeg, node)
		return nil
	case trie.Array:
		idx, err := parseArrayIndex(lastSeg)
		if err != nil {
			return err
		}
		n := container.Len()
		switch {
		case idx == n:
			container.Append(node)
			return nil
		case idx < n:
			return container.SetAt(idx, node)
		default:
			return &dberrors.InvalidIndexError{Pointer: ptr, Index: idx}
		}
	}
	return &dberrors.NoSuchContainerError{Pointer: ptr}
}

// Remove deletes the key/index named by ptr's final segment.
func (d *Document) Remove(ptr string) error {
	container, lastSeg, err := d.resolveContainer(ptr)
	if err != nil {
		return err
	}
	switch container.Kind() {
	case trie.Object:
		if !container.Remove(lastSeg) {
			return &dberrors.NoSuchElementError{Pointer: ptr}
		}
		return nil
	case trie.Array:
		idx, err := parseArrayIndex(lastSeg)
		if err != nil {
			return err
		}
		if !container.RemoveAt(idx) {
			return &dberrors.NoSuchElementError{Pointer: ptr}
		}
		return nil
	}
	return &dberrors.NoSuchElementError{Pointer: ptr}
}
