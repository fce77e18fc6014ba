package rank

import (
	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Candidate pairs an opaque record with its fingerprint.
type Candidate[T any] struct {
	Record      T
	Fingerprint fingerprint.Fingerprint
}

// Hit is a scored candidate. Position is the candidate's index in the input batch.
type Hit[T any] struct {
	Record   T
	Score    float64
	Position int
}

// Code classifies the outcome of a ranking call.
type Code string

const (
	// CodeOK means K results were returned (or K <= 0 was requested).
	CodeOK Code = "ok"
	// CodeShortfall means fewer than K valid candidates were available.
	CodeShortfall Code = "shortfall"
	// CodeNoCandidates means no valid candidate remained.
	CodeNoCandidates Code = "no_candidates"
)

// Diagnostics reports what happened to the candidate batch.
type Diagnostics struct {
	Code            Code
	Considered      int
	Valid           int
	Dropped         int
	DroppedByReason map[domain.FingerprintReason]int
	BelowThreshold  int
	Shortfall       int
}

// Result is the ordered, truncated output of a ranking call.
type Result[T any] struct {
	Hits        []Hit[T]
	Diagnostics Diagnostics
}

func (d *Diagnostics) drop(reason domain.FingerprintReason) {
	if d.DroppedByReason == nil {
		d.DroppedByReason = make(map[domain.FingerprintReason]int)
	}
	d.DroppedByReason[reason]++
	d.Dropped++
}

func (d *Diagnostics) add(o Diagnostics) {
	d.Considered += o.Considered
	d.Valid += o.Valid
	d.BelowThreshold += o.BelowThreshold
	for reason, n := range o.DroppedByReason {
		if d.DroppedByReason == nil {
			d.DroppedByReason = make(map[domain.FingerprintReason]int)
		}
		d.DroppedByReason[reason] += n
		d.Dropped += n
	}
}

// finish sets Code and Shortfall from the eligible count and K.
func (d *Diagnostics) finish(k int) {
	eligible := d.Valid - d.BelowThreshold
	switch {
	case k <= 0:
		d.Code = CodeOK
	case eligible == 0:
		d.Code = CodeNoCandidates
		d.Shortfall = k
	case eligible < k:
		d.Code = CodeShortfall
		d.Shortfall = k - eligible
	default:
		d.Code = CodeOK
	}
}
