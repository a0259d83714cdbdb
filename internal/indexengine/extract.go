package indexengine

import (
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/types"
)

// valueAt pulls the scalar at ptr out of doc as a types.Comparable.
// Containers (object/array) and null/missing fields don't participate
// in an index — ok is false for those.
func valueAt(doc *document.Document, ptr string) (types.Comparable, bool) {
	switch {
	case doc.IsInt64(ptr):
		v, err := doc.GetInt64(ptr)
		if err != nil {
			return nil, false
		}
		return types.IntKey(v), true
	case doc.IsUint64(ptr):
		v, err := doc.GetUint64(ptr)
		if err != nil {
			return nil, false
		}
		return types.UintKey(v), true
	case doc.IsFloat64(ptr):
		v, err := doc.GetFloat64(ptr)
		if err != nil {
			return nil, false
		}
		return types.FloatKey(v), true
	case doc.IsString(ptr):
		v, err := doc.GetString(ptr)
		if err != nil {
			return nil, false
		}
		return types.VarcharKey(v), true
	case doc.IsBool(ptr):
		v, err := doc.GetBool(ptr)
		if err != nil {
			return nil, false
		}
		return types.BoolKey(v), true
	default:
		return nil, false
	}
}

// extractKey builds the key value an index entry for doc should use,
// given the index's ordered key-tuple. A single-pointer index yields a
// bare Comparable; a multi-pointer index yields a types.CompositeKey.
// ok is false when any component is missing, null, or a container —
// such documents are simply not represented in the index, mirroring
// the teacher's scan.go treatment of absent fields as non-matching
// rather than an error.
func extractKey(doc *document.Document, keys []string) (types.Comparable, bool) {
	if len(keys) == 1 {
		return valueAt(doc, keys[0])
	}
	comps := make(types.CompositeKey, 0, len(keys))
	for _, k := range keys {
		v, ok := valueAt(doc, k)
		if !ok {
			return nil, false
		}
		comps = append(comps, v)
	}
	return comps, true
}
