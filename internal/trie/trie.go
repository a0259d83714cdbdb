// Package trie implements the shared structural skeleton of a document:
// a tree of object/array/leaf nodes whose leaves point at tape elements
// rather than embedding values directly (spec §3 "Trie node").
//
// Object children preserve insertion order (JSON object key order is
// observable through Keys()), array children are dense and index-addressed.
package trie

import "github.com/bobboyms/docengine/internal/tape"

// Kind discriminates the three node shapes.
type Kind uint8

const (
	Leaf Kind = iota
	Object
	Array
)

// Origin records which of a document's two tapes (immutable, populated
// once from JSON; or mutable, populated by subsequent writes) a leaf's
// Ref resolves against.
type Origin uint8

const (
	Immutable Origin = iota
	Mutable
)

// Node is one node of the trie. Only the fields relevant to Kind are
// meaningful.
type Node struct {
	kind Kind

	// Object: parallel slices preserving insertion order, plus an index
	// for O(1) key lookup.
	keys     []string
	children []*Node
	index    map[string]int

	// Array: dense, index-addressed.
	elements []*Node

	// Leaf.
	origin Origin
	ref    tape.Ref

	// Shared marks a child that Clone has left reachable from both the
	// original and the copy. Nothing reads the flag: no write path
	// clones a Shared node before changing it.
	Shared bool
}

func NewObject() *Node {
	return &Node{kind: Object, index: make(map[string]int)}
}

func NewArray() *Node {
	return &Node{kind: Array}
}

func NewLeaf(origin Origin, ref tape.Ref) *Node {
	return &Node{kind: Leaf, origin: origin, ref: ref}
}

func (n *Node) Kind() Kind          { return n.kind }
func (n *Node) IsObject() bool      { return n.kind == Object }
func (n *Node) IsArray() bool       { return n.kind == Array }
func (n *Node) IsLeaf() bool        { return n.kind == Leaf }
func (n *Node) Origin() Origin      { return n.origin }
func (n *Node) Ref() tape.Ref       { return n.ref }

// Keys returns an object node's keys in insertion order. Panics if n is
// not an object.
func (n *Node) Keys() []string {
	n.mustBe(Object)
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Get looks up a child by key on an object node.
func (n *Node) Get(key string) (*Node, bool) {
	n.mustBe(Object)
	i, ok := n.index[key]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// Set inserts or replaces the child at key, preserving the position of
// an existing key and appending new keys at the end.
func (n *Node) Set(key string, child *Node) {
	n.mustBe(Object)
	if i, ok := n.index[key]; ok {
		n.children[i] = child
		return
	}
	n.index[key] = len(n.keys)
	n.keys = append(n.keys, key)
	n.children = append(n.children, child)
}

// Remove deletes a key, compacting the backing slices so iteration order
// has no holes.
func (n *Node) Remove(key string) bool {
	n.mustBe(Object)
	i, ok := n.index[key]
	if !ok {
		return false
	}
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.children = append(n.children[:i], n.children[i+1:]...)
	delete(n.index, key)
	for k, idx := range n.index {
		if idx > i {
			n.index[k] = idx - 1
		}
	}
	return true
}

// Len returns the element or key count of an array or object node.
func (n *Node) Len() int {
	switch n.kind {
	case Object:
		return len(n.keys)
	case Array:
		return len(n.elements)
	default:
		return 0
	}
}

// At returns the array element at i.
func (n *Node) At(i int) (*Node, bool) {
	n.mustBe(Array)
	if i < 0 || i >= len(n.elements) {
		return nil, false
	}
	return n.elements[i], true
}

// Append adds an element to the end of an array node.
func (n *Node) Append(child *Node) {
	n.mustBe(Array)
	n.elements = append(n.elements, child)
}

// SetAt replaces the element at i, which must already exist.
func (n *Node) SetAt(i int, child *Node) error {
	n.mustBe(Array)
	if i < 0 || i >= len(n.elements) {
		return errOutOfRange(i, len(n.elements))
	}
	n.elements[i] = child
	return nil
}

// RemoveAt deletes the element at i, compacting the array (this module's
// resolution of the upstream "sparse vs. dense array delete" ambiguity —
// see DESIGN.md).
func (n *Node) RemoveAt(i int) bool {
	n.mustBe(Array)
	if i < 0 || i >= len(n.elements) {
		return false
	}
	n.elements = append(n.elements[:i], n.elements[i+1:]...)
	return true
}

// Elements returns an array node's children in order.
func (n *Node) Elements() []*Node {
	n.mustBe(Array)
	out := make([]*Node, len(n.elements))
	copy(out, n.elements)
	return out
}

// Clone makes a shallow structural copy of n: object/array children are
// shared (marked Shared) with the original, not deep-copied, so a write
// into a shared child is visible through both n and the copy.
func (n *Node) Clone() *Node {
	switch n.kind {
	case Object:
		c := NewObject()
		c.keys = append([]string{}, n.keys...)
		c.children = append([]*Node{}, n.children...)
		for k, v := range n.index {
			c.index[k] = v
		}
		for _, child := range c.children {
			child.Shared = true
		}
		return c
	case Array:
		c := NewArray()
		c.elements = append([]*Node{}, n.elements...)
		for _, child := range c.elements {
			child.Shared = true
		}
		return c
	default:
		c := *n
		return &c
	}
}

func (n *Node) mustBe(k Kind) {
	if n.kind != k {
		panic("trie: wrong node kind for operation")
	}
}

type rangeErr struct {
	i, n int
}

func (e rangeErr) Error() string {
	return "trie: array index out of range"
}

func errOutOfRange(i, n int) error {
	return rangeErr{i, n}
}
