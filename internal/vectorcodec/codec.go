// Package vectorcodec converts between float32 embedding vectors and the
// opaque byte blobs chunks persist them as, and computes cosine similarity
// between two vectors.
package vectorcodec

import (
	"encoding/binary"
	"math"

	"github.com/factengine/factengine/internal/engineerr"
)

// ToBlob writes exactly 4*len(v) bytes of little-endian float32.
func ToBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// FromBlob reinterprets a byte blob produced by ToBlob as a float32 vector.
func FromBlob(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// CosineSimilarity computes cosine similarity between a and b. It fails
// with engineerr.VectorLenMismatch if the lengths differ and with
// engineerr.ZeroLength if either length is zero. When either vector has
// zero magnitude the result is defined to be 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, engineerr.New(engineerr.ZeroLength, "vector has zero length")
	}
	if len(a) != len(b) {
		return 0, engineerr.New(engineerr.VectorLenMismatch, "vector lengths differ")
	}

	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}
