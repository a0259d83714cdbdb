package types

import "strings"

// CompositeKey orders lexicographically component-by-component, backing
// multi-field secondary indexes (spec §4.3's "key-tuple" — an ordered
// list of JSON Pointers each indexed position is compared in turn).
type CompositeKey []Comparable

func (k CompositeKey) Compare(other Comparable) int {
	o, ok := other.(CompositeKey)
	if !ok {
		// A composite key only ever compares against another composite
		// key built from the same key-tuple shape.
		panic("types: CompositeKey compared against non-composite key")
	}
	n := len(k)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if c := k[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k) < len(o):
		return -1
	case len(k) > len(o):
		return 1
	default:
		return 0
	}
}

func (k CompositeKey) String() string {
	parts := make([]string, len(k))
	for i, c := range k {
		if s, ok := c.(interface{ String() string }); ok {
			parts[i] = s.String()
		}
	}
	return strings.Join(parts, "|")
}
