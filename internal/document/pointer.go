package document

import (
	"strconv"
	"strings"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/trie"
)

// splitPointer tokenizes a JSON Pointer (RFC 6901) into unescaped
// segments. "" resolves to the root (zero segments); a pointer not
// starting with '/' is ill-formed.
func splitPointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	if ptr[0] != '/' {
		return nil, &dberrors.InvalidJSONPointerError{Pointer: ptr}
	}
	raw := strings.Split(ptr[1:], "/")
	segs := make([]string, len(raw))
	for i, s := range raw {
		segs[i] = unescapeToken(s)
	}
	return segs, nil
}

func unescapeToken(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

// parseArrayIndex parses a decimal array segment. A negative index is
// invalid_index; anything non-numeric is also invalid_index.
func parseArrayIndex(seg string) (int, error) {
	if seg == "" || seg[0] == '-' {
		return 0, &dberrors.InvalidIndexError{Pointer: seg, Index: -1}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, &dberrors.InvalidIndexError{Pointer: seg, Index: -1}
	}
	return n, nil
}

// resolveNode walks segs from root, following object keys and array
// indices. Reaching a leaf with segments remaining, or a missing key/
// out-of-range index, yields no_such_element.
func resolveNode(root *trie.Node, segs []string) (*trie.Node, error) {
	cur := root
	for _, seg := range segs {
		switch cur.Kind() {
		case trie.Object:
			child, ok := cur.Get(seg)
			if !ok {
				return nil, &dberrors.NoSuchElementError{Pointer: seg}
			}
			cur = child
		case trie.Array:
			idx, err := parseArrayIndex(seg)
			if err != nil {
				return nil, err
			}
			child, ok := cur.At(idx)
			if !ok {
				return nil, &dberrors.NoSuchElementError{Pointer: seg}
			}
			cur = child
		default:
			return nil, &dberrors.NoSuchElementError{Pointer: seg}
		}
	}
	return cur, nil
}

func (d *Document) resolvePointer(ptr string) (*trie.Node, error) {
	segs, err := splitPointer(ptr)
	if err != nil {
		return nil, err
	}
	return resolveNode(d.root, segs)
}

// splitContainerPointer separates the container pointer from the final
// path segment (the key/index written or removed within it). ptr must
// name at least one segment.
func splitContainerPointer(ptr string) (containerSegs []string, lastSeg string, err error) {
	segs, err := splitPointer(ptr)
	if err != nil {
		return nil, "", err
	}
	if len(segs) == 0 {
		return nil, "", &dberrors.NoSuchContainerError{Pointer: ptr}
	}
	return segs[:len(segs)-1], segs[len(segs)-1], nil
}

func (d *Document) resolveContainer(ptr string) (container *trie.Node, lastSeg string, err error) {
	containerSegs, last, err := splitContainerPointer(ptr)
	if err != nil {
		return nil, "", err
	}
	container, err = resolveNode(d.root, containerSegs)
	if err != nil {
		return nil, "", &dberrors.NoSuchContainerError{Pointer: ptr}
	}
	if container.Kind() != trie.Object && container.Kind() != trie.Array {
		return nil, "", &dberrors.NoSuchContainerError{Pointer: ptr}
	}
	return container, last, nil
}
