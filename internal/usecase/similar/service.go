package similar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/domain/predicate"
	"github.com/kailas-cloud/patsim/internal/logger"
	"github.com/kailas-cloud/patsim/internal/metrics"
	"github.com/kailas-cloud/patsim/internal/usecase/rank"
)

// Status classifies a completed search.
type Status string

const (
	StatusOK             Status = "ok"
	StatusEmptyPredicate Status = "empty_predicate"
	StatusNoCandidates   Status = "no_candidates"
)

// Options configures the service. Zero values fall back to sane defaults.
type Options struct {
	Dimensions        int
	K                 int
	PrefixLen         int
	MinScore          *float64
	ExcludeSelf       bool
	MaxCandidates     int
	Partitions        int
	ParallelThreshold int
	// SourceName labels upstream failures (valkey, parquet, bigquery).
	SourceName string
}

// Query is one similarity search. Nil overrides use the configured defaults.
type Query struct {
	Document  patent.Document
	K         *int
	MinScore  *float64
	PrefixLen *int
}

// Outcome is the result of a search that did not fail.
type Outcome struct {
	Status       Status
	Document     patent.Document
	Prefixes     []string
	Tags         []string
	ExpandedTags []string
	Result       rank.Result[candidate.Record]
	Duplicates   int
	ExcludedSelf bool
}

// Hits returns the ranked hits (empty unless Status is ok).
func (o Outcome) Hits() []rank.Hit[candidate.Record] { return o.Result.Hits }

// Service anchors a search on a reference publication: it derives the prefix
// predicate, loads the reference fingerprint and candidates, and ranks them.
type Service struct {
	refs     ReferenceSource
	cands    CandidateSource
	expander TagExpander
	ranker   *rank.Ranker[candidate.Record]
	parallel *rank.Parallel[candidate.Record]
	opts     Options
	logger   *zap.Logger
}

// New creates a similarity service. expander and pool may be nil.
func New(
	refs ReferenceSource,
	cands CandidateSource,
	expander TagExpander,
	pool rank.Submitter,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.Dimensions <= 0 {
		opts.Dimensions = 64
	}
	if opts.K <= 0 {
		opts.K = 1000
	}
	if opts.PrefixLen <= 0 {
		opts.PrefixLen = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SourceName == "" {
		opts.SourceName = "source"
	}

	ranker := rank.New(opts.Dimensions, candidate.Compare)
	if opts.MinScore != nil {
		ranker = ranker.WithMinScore(*opts.MinScore)
	}
	return &Service{
		refs:     refs,
		cands:    cands,
		expander: expander,
		ranker:   ranker,
		parallel: rank.NewParallel(ranker, pool, opts.Partitions, opts.ParallelThreshold),
		opts:     opts,
		logger:   logger,
	}
}

// Search runs one similarity query. empty_predicate and no_candidates are
// reported through Outcome.Status, not as errors.
func (s *Service) Search(ctx context.Context, q Query) (Outcome, error) {
	start := time.Now()
	out, err := s.search(ctx, q)
	duration := time.Since(start)

	status := string(out.Status)
	if err != nil {
		status = "error"
	}
	metrics.SearchTotal.WithLabelValues(status).Inc()

	log := s.logger
	if reqLog := logger.From(ctx); reqLog.Core().Enabled(zap.ErrorLevel) {
		log = reqLog
	}
	fields := []zap.Field{
		zap.String("publication_number", q.Document.PublicationNumber()),
		zap.String("country", q.Document.CountryCode()),
		zap.String("status", status),
		zap.Int("prefixes", len(out.Prefixes)),
		zap.Int("candidates", out.Result.Diagnostics.Considered),
		zap.Int("dropped", out.Result.Diagnostics.Dropped),
		zap.Int("hits", len(out.Result.Hits)),
		zap.Duration("duration", duration),
	}
	if err != nil {
		log.Warn("Similarity search failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("Similarity search completed", fields...)
	}
	return out, err
}

func (s *Service) search(ctx context.Context, q Query) (Outcome, error) {
	doc := q.Document
	if doc.PublicationNumber() == "" {
		return Outcome{}, fmt.Errorf("%w: publication number is required", domain.ErrInvalidQuery)
	}
	k, prefixLen, err := s.resolve(q)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Document: doc}
	out.Tags, out.ExpandedTags = s.tags(ctx, doc)

	pred, err := predicate.Derive(out.Tags, prefixLen)
	if errors.Is(err, domain.ErrEmptyPredicate) {
		out.Status = StatusEmptyPredicate
		return out, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("derive predicate: %w", err)
	}
	out.Prefixes = pred.Prefixes()

	reference, err := s.refs.Reference(ctx, doc.PublicationNumber(), doc.CountryCode())
	if err != nil {
		return Outcome{}, s.classify("reference", err)
	}
	if err = reference.Validate(s.opts.Dimensions); err != nil {
		return Outcome{}, fmt.Errorf("reference %s: %w", doc.PublicationNumber(), err)
	}

	patents, err := s.cands.Candidates(ctx, candidate.Query{
		Predicate: pred,
		Country:   doc.CountryCode(),
		Limit:     s.opts.MaxCandidates,
	})
	if err != nil {
		return Outcome{}, s.classify("candidates", err)
	}

	batch, dups, excluded := s.prepare(doc.PublicationNumber(), patents)
	out.Duplicates = dups
	out.ExcludedSelf = excluded

	ranker := s.parallel
	if q.MinScore != nil {
		ranker = s.parallel.WithRanker(s.ranker.WithMinScore(*q.MinScore))
	}

	rankStart := time.Now()
	res, err := ranker.Rank(reference, batch, k)
	if err != nil {
		return Outcome{}, fmt.Errorf("rank: %w", err)
	}
	metrics.RankDuration.Observe(time.Since(rankStart).Seconds())
	metrics.RankCandidates.Observe(float64(len(batch)))
	for reason, n := range res.Diagnostics.DroppedByReason {
		metrics.RankDroppedTotal.WithLabelValues(string(reason)).Add(float64(n))
	}

	out.Result = res
	if res.Diagnostics.Code == rank.CodeNoCandidates {
		out.Status = StatusNoCandidates
		return out, nil
	}
	out.Status = StatusOK
	return out, nil
}

func (s *Service) resolve(q Query) (k, prefixLen int, err error) {
	k, prefixLen = s.opts.K, s.opts.PrefixLen
	// k <= 0 is a valid request for an empty result.
	if q.K != nil {
		k = *q.K
	}
	if q.PrefixLen != nil {
		if *q.PrefixLen < 1 {
			return 0, 0, fmt.Errorf("%w: %d", domain.ErrInvalidPrefixLength, *q.PrefixLen)
		}
		prefixLen = *q.PrefixLen
	}
	if q.MinScore != nil && (*q.MinScore < -1 || *q.MinScore > 1) {
		return 0, 0, fmt.Errorf("%w: min_score must be within [-1, 1]", domain.ErrInvalidQuery)
	}
	return k, prefixLen, nil
}

// tags returns the document tags, extended by the expander when configured.
// Expansion failures are logged and ignored.
func (s *Service) tags(ctx context.Context, doc patent.Document) (all, expanded []string) {
	all = doc.Tags()
	if s.expander == nil {
		return all, nil
	}
	codes, err := s.expander.Expand(ctx, doc)
	if err != nil {
		s.logger.Warn("Tag expansion failed, using document tags only",
			zap.String("publication_number", doc.PublicationNumber()),
			zap.Error(err),
		)
		return all, nil
	}
	codes = patent.NormalizeCodes(codes)
	known := make(map[string]struct{}, len(all))
	for _, t := range all {
		known[t] = struct{}{}
	}
	for _, c := range codes {
		if _, ok := known[c]; ok {
			continue
		}
		known[c] = struct{}{}
		expanded = append(expanded, c)
	}
	return append(all, expanded...), expanded
}

// prepare collapses duplicate publication numbers (first wins) and drops the
// reference itself when configured.
func (s *Service) prepare(self string, patents []candidate.Patent) ([]rank.Candidate[candidate.Record], int, bool) {
	seen := make(map[string]struct{}, len(patents))
	batch := make([]rank.Candidate[candidate.Record], 0, len(patents))
	dups := 0
	excluded := false
	for _, p := range patents {
		id := p.Record.ID()
		if s.opts.ExcludeSelf && id == self {
			excluded = true
			continue
		}
		if _, dup := seen[id]; dup {
			dups++
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, rank.Candidate[candidate.Record]{Record: p.Record, Fingerprint: p.Fingerprint})
	}
	return batch, dups, excluded
}

// classify keeps caller-facing errors as they are and wraps the rest as
// upstream failures.
func (s *Service) classify(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrReferenceNotFound),
		errors.Is(err, domain.ErrInvalidFingerprint),
		errors.Is(err, domain.ErrInvalidPrefixLength),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.NewUpstreamError(s.opts.SourceName, op, err)
}
