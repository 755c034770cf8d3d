package coupling

import (
	"encoding/binary"
	"math"
)

// packElement appends one (globalID, value...) tuple to buf in the wire
// format shared by the gather and scatter engines: an 8-byte
// little-endian global id followed by stride little-endian float64
// values. Packing id-then-values per element, rather than carrying a
// separate index array alongside a flat value payload, keeps decoding a
// single linear scan.
func packElement(buf []byte, globalID uint64, values []float64) []byte {
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], globalID)
	buf = append(buf, hdr[:]...)
	for _, v := range values {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

func elementSize(stride int) int { return 8 + stride*8 }

// unpackElement reads one tuple from buf at the given element stride,
// returning the global id and a newly allocated values slice (it does not
// alias buf).
func unpackElement(buf []byte, stride int) (uint64, []float64) {
	id := binary.LittleEndian.Uint64(buf[:8])
	values := make([]float64, stride)
	for i := 0; i < stride; i++ {
		off := 8 + i*8
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
	}
	return id, values
}
