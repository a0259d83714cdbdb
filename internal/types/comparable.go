// Package types defines the ordered key types secondary indexes and
// B+Trees operate on, generalizing the teacher engine's pkg/types to the
// logical type set of the document model (spec §3).
package types

import (
	"fmt"
	"time"
)

// Comparable is implemented by every value usable as an index key.
type Comparable interface {
	Compare(other Comparable) int // -1 if <, 0 if ==, 1 if >
}

// IntKey is a 64-bit signed integer key (TINYINT..BIGINT collapse here).
type IntKey int64

func (k IntKey) Compare(other Comparable) int {
	switch o := other.(type) {
	case IntKey:
		return cmpInt64(int64(k), int64(o))
	case UintKey:
		return cmpInt64(int64(k), int64(o))
	case FloatKey:
		return cmpFloat64(float64(k), float64(o))
	default:
		panic(fmt.Sprintf("IntKey: incomparable type %T", other))
	}
}
func (k IntKey) String() string { return fmt.Sprintf("%d", int64(k)) }

// UintKey is an unsigned integer key (UTINYINT..UBIGINT collapse here).
type UintKey uint64

func (k UintKey) Compare(other Comparable) int {
	switch o := other.(type) {
	case UintKey:
		return cmpUint64(uint64(k), uint64(o))
	case IntKey:
		return cmpInt64(int64(k), int64(o))
	case FloatKey:
		return cmpFloat64(float64(k), float64(o))
	default:
		panic(fmt.Sprintf("UintKey: incomparable type %T", other))
	}
}
func (k UintKey) String() string { return fmt.Sprintf("%d", uint64(k)) }

// VarcharKey is a string key, compared lexicographically.
type VarcharKey string

func (k VarcharKey) Compare(other Comparable) int {
	o := other.(VarcharKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}
func (k VarcharKey) String() string { return string(k) }

// FloatKey is a double-precision key; compares numerically against int/uint keys too.
type FloatKey float64

func (k FloatKey) Compare(other Comparable) int {
	switch o := other.(type) {
	case FloatKey:
		return cmpFloat64(float64(k), float64(o))
	case IntKey:
		return cmpFloat64(float64(k), float64(o))
	case UintKey:
		return cmpFloat64(float64(k), float64(o))
	default:
		panic(fmt.Sprintf("FloatKey: incomparable type %T", other))
	}
}
func (k FloatKey) String() string { return fmt.Sprintf("%f", float64(k)) }

// BoolKey orders false before true.
type BoolKey bool

func (k BoolKey) Compare(other Comparable) int {
	o := other.(BoolKey)
	if k == o {
		return 0
	}
	if !k && o {
		return -1
	}
	return 1
}
func (k BoolKey) String() string { return fmt.Sprintf("%t", bool(k)) }

// DateKey orders by time.Time.
type DateKey time.Time

func (k DateKey) Compare(other Comparable) int {
	o := time.Time(other.(DateKey))
	t := time.Time(k)
	switch {
	case t.Before(o):
		return -1
	case t.After(o):
		return 1
	default:
		return 0
	}
}
func (k DateKey) String() string { return time.Time(k).Format(time.RFC3339Nano) }

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
