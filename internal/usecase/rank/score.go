package rank

import (
	"fmt"

	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Cosine computes the pairwise cosine similarity dot(a,b) / (‖a‖·‖b‖),
// clamped to [-1, 1]. Returns 0 when either vector has zero norm or the
// lengths differ.
func Cosine(a, b fingerprint.Fingerprint) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return clamp(dot / (na * nb))
}

// BatchCosine scores every candidate against reference with the
// normalize-then-dot strategy. Candidates must already be valid.
func BatchCosine(reference fingerprint.Fingerprint, candidates []fingerprint.Fingerprint) ([]float64, error) {
	dim := len(reference)
	ref := make([]float64, dim)
	if !reference.NormalizeInto(ref) {
		return nil, fmt.Errorf("reference cannot be normalized")
	}
	m := make([]float64, len(candidates)*dim)
	for i, c := range candidates {
		if len(c) != dim || !c.NormalizeInto(m[i*dim:(i+1)*dim]) {
			return nil, fmt.Errorf("candidate %d cannot be normalized", i)
		}
	}
	out := make([]float64, len(candidates))
	matVec(m, ref, out)
	return out, nil
}

// matVec computes out[i] = clamp(m[i,:] · v) for a row-major matrix with len(v) columns.
func matVec(m, v, out []float64) {
	dim := len(v)
	for i := range out {
		row := m[i*dim : (i+1)*dim : (i+1)*dim]
		var s float64
		for j, x := range row {
			s += x * v[j]
		}
		out[i] = clamp(s)
	}
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
