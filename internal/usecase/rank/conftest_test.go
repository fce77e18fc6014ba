package rank

import (
	"fmt"
	"math/rand/v2"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

const testDim = 64

func newPatentRanker() *Ranker[candidate.Record] {
	return New(testDim, candidate.Compare)
}

func record(id, date string) candidate.Record {
	return candidate.NewRecord(map[string]string{
		candidate.FieldPublicationNumber: id,
		candidate.FieldFilingDate:        date,
	})
}

func randomFingerprint(rng *rand.Rand, dim int) fingerprint.Fingerprint {
	f := make(fingerprint.Fingerprint, dim)
	for i := range f {
		f[i] = rng.NormFloat64()
	}
	return f
}

func unit(dim, axis int) fingerprint.Fingerprint {
	f := make(fingerprint.Fingerprint, dim)
	f[axis] = 1
	return f
}

func syntheticCandidates(seed uint64, n, dim int) []Candidate[candidate.Record] {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Candidate[candidate.Record], n)
	for i := range out {
		out[i] = Candidate[candidate.Record]{
			Record:      record(fmt.Sprintf("JP-%07d-A", i), fmt.Sprintf("2019%02d01", 1+i%12)),
			Fingerprint: randomFingerprint(rng, dim),
		}
	}
	return out
}

func ids(hits []Hit[candidate.Record]) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ID()
	}
	return out
}
