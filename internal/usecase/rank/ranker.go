package rank

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Ranker scores candidates against a reference fingerprint by cosine
// similarity and returns the top K in a deterministic order.
// A Ranker holds no per-call state and is safe for concurrent use.
type Ranker[T any] struct {
	dim      int
	minScore *float64
	tieBreak func(a, b T) int
}

// New creates a Ranker for fingerprints of dimension dim. tieBreak orders
// records with equal scores (negative when a precedes b); it may be nil, in
// which case input position decides.
func New[T any](dim int, tieBreak func(a, b T) int) *Ranker[T] {
	return &Ranker[T]{dim: dim, tieBreak: tieBreak}
}

// WithMinScore returns a copy that discards candidates scoring below minScore.
func (r *Ranker[T]) WithMinScore(minScore float64) *Ranker[T] {
	c := *r
	c.minScore = &minScore
	return &c
}

// Dimensions returns the expected fingerprint dimension.
func (r *Ranker[T]) Dimensions() int { return r.dim }

// Rank returns the k candidates most similar to reference.
// Invalid candidates are dropped and counted; only an invalid reference fails.
func (r *Ranker[T]) Rank(reference fingerprint.Fingerprint, candidates []Candidate[T], k int) (Result[T], error) {
	ref, err := r.prepareReference(reference)
	if err != nil {
		return Result[T]{}, err
	}
	return r.rank(ref, candidates, 0, k), nil
}

// MergeTopK reduces per-partition results into the global top k.
// Each part must come from the same reference; positions must be global.
func (r *Ranker[T]) MergeTopK(k int, parts ...Result[T]) Result[T] {
	var diag Diagnostics
	total := 0
	for _, p := range parts {
		total += len(p.Hits)
	}
	hits := make([]Hit[T], 0, total)
	for _, p := range parts {
		diag.add(p.Diagnostics)
		hits = append(hits, p.Hits...)
	}
	diag.finish(k)
	return Result[T]{Hits: topK(hits, k, r.precedes), Diagnostics: diag}
}

func (r *Ranker[T]) prepareReference(reference fingerprint.Fingerprint) ([]float64, error) {
	if err := reference.Validate(r.dim); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	ref := make([]float64, r.dim)
	if !reference.NormalizeInto(ref) {
		return nil, &domain.FingerprintError{Reason: domain.ReasonNonFinite, Detail: "reference norm"}
	}
	return ref, nil
}

// rank scores candidates (whose global positions start at offset) against a
// normalized reference.
func (r *Ranker[T]) rank(ref []float64, candidates []Candidate[T], offset, k int) Result[T] {
	diag := Diagnostics{Considered: len(candidates)}
	if k <= 0 {
		diag.finish(k)
		return Result[T]{Hits: []Hit[T]{}, Diagnostics: diag}
	}

	valid := make([]int, 0, len(candidates))
	matrix := make([]float64, 0, len(candidates)*r.dim)
	for i := range candidates {
		fp := candidates[i].Fingerprint
		if err := fp.Validate(r.dim); err != nil {
			diag.drop(reasonOf(err))
			continue
		}
		row := matrix[len(matrix) : len(matrix)+r.dim]
		if !fp.NormalizeInto(row) {
			diag.drop(domain.ReasonNonFinite)
			continue
		}
		matrix = matrix[:len(matrix)+r.dim]
		valid = append(valid, i)
	}
	diag.Valid = len(valid)

	scores := make([]float64, len(valid))
	matVec(matrix, ref, scores)

	hits := make([]Hit[T], 0, len(valid))
	for j, i := range valid {
		if r.minScore != nil && scores[j] < *r.minScore {
			diag.BelowThreshold++
			continue
		}
		hits = append(hits, Hit[T]{Record: candidates[i].Record, Score: scores[j], Position: offset + i})
	}

	diag.finish(k)
	return Result[T]{Hits: topK(hits, k, r.precedes), Diagnostics: diag}
}

// precedes is the total result order: score desc, tie-break, input position.
func (r *Ranker[T]) precedes(a, b Hit[T]) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if r.tieBreak != nil {
		if c := r.tieBreak(a.Record, b.Record); c != 0 {
			return c < 0
		}
	}
	return a.Position < b.Position
}

func reasonOf(err error) domain.FingerprintReason {
	var fe *domain.FingerprintError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return domain.ReasonNonFinite
}
