package indexengine

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/bobboyms/docengine/internal/types"
)

// encodeKey renders a types.Comparable as an order-preserving byte
// string suitable as a bbolt key: bbolt buckets iterate keys in raw
// byte order, so encoding must make byte comparison agree with
// Comparable.Compare. Composite keys concatenate each component's
// length-prefixed encoding so multi-field tuples decode unambiguously
// and still compare component-wise.
func encodeKey(k types.Comparable) []byte {
	switch v := k.(type) {
	case types.CompositeKey:
		var out []byte
		for _, c := range v {
			enc := encodeKey(c)
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(enc)))
			out = append(out, lenBuf[:]...)
			out = append(out, enc...)
		}
		return out
	case types.IntKey:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v))+(1<<63))
		return buf[:]
	case types.UintKey:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		return buf[:]
	case types.FloatKey:
		return encodeFloatOrdered(float64(v))
	case types.VarcharKey:
		return []byte(string(v))
	case types.BoolKey:
		if v {
			return []byte{1}
		}
		return []byte{0}
	case types.DateKey:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(time.Time(v).UnixNano())+(1<<63))
		return buf[:]
	default:
		panic("indexengine: unsupported key type for disk encoding")
	}
}

// encodeFloatOrdered maps IEEE-754 bits so unsigned byte comparison
// matches float ordering: flip the sign bit for non-negatives, flip all
// bits for negatives.
func encodeFloatOrdered(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return buf[:]
}
