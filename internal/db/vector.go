package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes encodes a vector as little-endian FLOAT32, the layout FT
// indexes store in hash fields and accept as KNN query blobs.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
