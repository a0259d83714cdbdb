package indexengine

import "github.com/bobboyms/docengine/internal/types"

// ValueToKey converts a plain Go value — as it would arrive in a
// dispatcher filter's parameter map — into the types.Comparable an
// index's Range expects. Used by the dispatcher when it recognizes a
// filter it can answer directly from an index instead of a full scan.
func ValueToKey(v interface{}) (types.Comparable, bool) {
	switch n := v.(type) {
	case int:
		return types.IntKey(int64(n)), true
	case int32:
		return types.IntKey(int64(n)), true
	case int64:
		return types.IntKey(n), true
	case uint:
		return types.UintKey(uint64(n)), true
	case uint32:
		return types.UintKey(uint64(n)), true
	case uint64:
		return types.UintKey(n), true
	case float32:
		return types.FloatKey(float64(n)), true
	case float64:
		return types.FloatKey(n), true
	case string:
		return types.VarcharKey(n), true
	case bool:
		return types.BoolKey(n), true
	default:
		return nil, false
	}
}
