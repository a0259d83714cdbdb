// Package document implements the embeddable document model: a trie of
// object/array/leaf nodes backed by two scalar tapes (immutable, loaded
// once from JSON; mutable, populated by subsequent writes).
//
// Grounded on the teacher engine's BSON-document handling (pkg/storage/bson.go)
// generalized to the richer tape+trie representation original_source's
// components/document/document.cpp implements.
package document

import (
	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// Document is a live view over a trie node and the two tapes its leaves
// resolve against. Root documents own fresh tapes; sub-documents (from
// GetArray/GetDict) share the root's tapes and hold a root-pointer into
// the root's trie instead.
type Document struct {
	immutable *tape.Tape
	mutable   *tape.Tape
	root      *trie.Node
	ancestors []*Document
	alloc     *Allocator
}

// New creates an empty root document: an object with no fields and a
// fresh pair of tapes.
func New() *Document {
	return &Document{
		immutable: tape.New(),
		mutable:   tape.New(),
		root:      trie.NewObject(),
		alloc:     NewAllocator(),
	}
}

// IsRoot reports whether d owns its own tapes rather than sharing a
// parent document's (spec §3: "root documents own both tapes").
func (d *Document) IsRoot() bool {
	return len(d.ancestors) == 0
}

func (d *Document) tapeFor(o trie.Origin) *tape.Tape {
	if o == trie.Mutable {
		return d.mutable
	}
	return d.immutable
}

func (d *Document) subDocument(node *trie.Node) *Document {
	ancestors := make([]*Document, 0, len(d.ancestors)+1)
	ancestors = append(ancestors, d.ancestors...)
	ancestors = append(ancestors, d)
	return &Document{
		immutable: d.immutable,
		mutable:   d.mutable,
		root:      node,
		ancestors: ancestors,
		alloc:     d.alloc,
	}
}
