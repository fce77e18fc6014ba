package rank

import (
	"sync"

	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Submitter runs tasks on a worker pool (satisfied by *ants.Pool).
type Submitter interface {
	Submit(task func()) error
}

// Parallel splits large candidate batches into partitions, ranks each on a
// worker and merges the per-partition top K. The output equals Ranker.Rank.
type Parallel[T any] struct {
	ranker     *Ranker[T]
	pool       Submitter
	partitions int
	threshold  int
}

// NewParallel creates a partitioning ranker. Batches smaller than threshold,
// or a nil pool, fall back to the sequential path.
func NewParallel[T any](ranker *Ranker[T], pool Submitter, partitions, threshold int) *Parallel[T] {
	return &Parallel[T]{ranker: ranker, pool: pool, partitions: partitions, threshold: threshold}
}

// WithRanker returns a copy using a different ranker (e.g. with a per-query threshold).
func (p *Parallel[T]) WithRanker(r *Ranker[T]) *Parallel[T] {
	c := *p
	c.ranker = r
	return &c
}

// Rank ranks candidates, partitioning the batch when it is large enough.
func (p *Parallel[T]) Rank(reference fingerprint.Fingerprint, candidates []Candidate[T], k int) (Result[T], error) {
	n := len(candidates)
	parts := p.partitions
	if parts > n {
		parts = n
	}
	if p.pool == nil || parts < 2 || n < p.threshold || k <= 0 {
		return p.ranker.Rank(reference, candidates, k)
	}

	ref, err := p.ranker.prepareReference(reference)
	if err != nil {
		return Result[T]{}, err
	}

	size := (n + parts - 1) / parts
	results := make([]Result[T], 0, parts)
	for lo := 0; lo < n; lo += size {
		results = append(results, Result[T]{})
	}

	var wg sync.WaitGroup
	for i := range results {
		lo := i * size
		hi := min(lo+size, n)
		task := func() {
			defer wg.Done()
			results[i] = p.ranker.rank(ref, candidates[lo:hi], lo, k)
		}
		wg.Add(1)
		if err := p.pool.Submit(task); err != nil {
			// Pool closed or saturated: run inline.
			task()
		}
	}
	wg.Wait()

	return p.ranker.MergeTopK(k, results...), nil
}
