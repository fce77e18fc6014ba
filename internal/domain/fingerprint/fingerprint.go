package fingerprint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kailas-cloud/patsim/internal/domain"
)

// DefaultDimensions matches embedding_v1 of the Google Patents research dataset.
const DefaultDimensions = 64

// Fingerprint is a fixed-length document vector.
type Fingerprint []float64

// Validate checks that f has exactly dim finite components and is not all-zero.
func (f Fingerprint) Validate(dim int) error {
	if len(f) == 0 {
		return &domain.FingerprintError{Reason: domain.ReasonEmpty}
	}
	if len(f) != dim {
		return &domain.FingerprintError{
			Reason: domain.ReasonDimension,
			Detail: fmt.Sprintf("expected %d, got %d", dim, len(f)),
		}
	}
	zero := true
	for i, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &domain.FingerprintError{
				Reason: domain.ReasonNonFinite,
				Detail: fmt.Sprintf("component %d", i),
			}
		}
		if v != 0 {
			zero = false
		}
	}
	if zero {
		return &domain.FingerprintError{Reason: domain.ReasonZero}
	}
	return nil
}

// Norm returns the Euclidean norm. Components are scaled by the largest
// magnitude first so that large finite values do not overflow.
func (f Fingerprint) Norm() float64 {
	var scale float64
	for _, v := range f {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	if scale == 0 {
		return 0
	}
	var sum float64
	for _, v := range f {
		x := v / scale
		sum += x * x
	}
	return scale * math.Sqrt(sum)
}

// NormalizeInto writes f / ‖f‖ into dst (len(dst) must equal len(f)).
// Returns false if the norm is zero or not finite.
func (f Fingerprint) NormalizeInto(dst []float64) bool {
	n := f.Norm()
	if n == 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return false
	}
	for i, v := range f {
		dst[i] = v / n
	}
	return true
}

// Normalized returns a unit-length copy of f, or nil if f cannot be normalized.
func (f Fingerprint) Normalized() Fingerprint {
	out := make(Fingerprint, len(f))
	if !f.NormalizeInto(out) {
		return nil
	}
	return out
}

// Bytes encodes f as little-endian float64 values.
func (f Fingerprint) Bytes() []byte {
	buf := make([]byte, len(f)*8)
	for i, v := range f {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// FromBytes decodes little-endian float64 values produced by Bytes.
func FromBytes(data []byte) (Fingerprint, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid fingerprint data: len=%d (not multiple of 8)", len(data))
	}
	f := make(Fingerprint, len(data)/8)
	for i := range f {
		f[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return f, nil
}
