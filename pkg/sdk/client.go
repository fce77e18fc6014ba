package patsim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	dbValkey "github.com/kailas-cloud/patsim/internal/db/valkey"
	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/metrics"
	patentrepo "github.com/kailas-cloud/patsim/internal/repository/patent"
	pqsource "github.com/kailas-cloud/patsim/internal/source/parquet"
	healthuc "github.com/kailas-cloud/patsim/internal/usecase/health"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
)

const (
	sourceValkey  = "valkey"
	sourceParquet = "parquet"

	defaultKeyPrefix        = "patsim:"
	defaultReadinessTimeout = 10 * time.Second
	defaultParallelMin      = 4096
)

var errImportUnsupported = errors.New("patsim: import requires the valkey source")

// Internal interfaces for substitution in tests.
type similarUseCase interface {
	Search(ctx context.Context, q similaruc.Query) (similaruc.Outcome, error)
}

type importUseCase interface {
	Import(ctx context.Context, patents []candidate.Patent) (int, error)
}

// Client is the patsim SDK entry point.
type Client struct {
	similarSvc similarUseCase
	importer   importUseCase
	healthSvc  healthUseCase
	sourceName string
	obs        *observer
	closers    []func()
}

// New creates a Client over the configured record source. For Valkey the
// provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix, prefixLen: 2, maxPrefixLen: 2}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	metrics.RegisterSearchMetrics()

	c := &Client{obs: obs, sourceName: cfg.source}
	var (
		refs  similaruc.ReferenceSource
		cands similaruc.CandidateSource
		ping  healthuc.Pinger
	)
	switch cfg.source {
	case sourceValkey:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("patsim: valkey address required")
		}
		store, err := dbValkey.NewStore(dbValkey.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("patsim: create valkey store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("patsim: valkey not ready: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		repo := patentrepo.New(store, cfg.keyPrefix, cfg.maxPrefixLen)
		refs, cands, ping, c.importer = repo, repo, store, repo
	case sourceParquet:
		if cfg.parquetDir == "" {
			return nil, errors.New("patsim: parquet directory required")
		}
		src := pqsource.New(cfg.parquetDir)
		refs, cands, ping = src, src, src
	default:
		return nil, errors.New("patsim: record source required (use WithValkey or WithParquet)")
	}

	var pool *ants.Pool
	if cfg.workers > 0 {
		if pool, err = ants.NewPool(cfg.workers); err != nil {
			c.Close()
			return nil, fmt.Errorf("patsim: create worker pool: %w", err)
		}
		c.closers = append(c.closers, pool.Release)
	}

	var expander similaruc.TagExpander
	if cfg.expander != nil {
		expander = &expanderAdapter{inner: cfg.expander}
	}

	svcOpts := similaruc.Options{
		Dimensions:        cfg.dimensions,
		K:                 cfg.topK,
		PrefixLen:         cfg.prefixLen,
		ExcludeSelf:       !cfg.keepSelf,
		MaxCandidates:     cfg.maxCandidates,
		Partitions:        cfg.partitions,
		ParallelThreshold: defaultParallelMin,
		SourceName:        cfg.source,
	}
	// Submitter must stay a nil interface when no pool is configured.
	if pool != nil {
		c.similarSvc = similaruc.New(refs, cands, expander, pool, svcOpts, nil)
	} else {
		c.similarSvc = similaruc.New(refs, cands, expander, nil, svcOpts, nil)
	}
	var checker healthuc.ExpanderChecker
	if hc, ok := cfg.expander.(HealthChecker); ok {
		checker = hc
	}
	c.healthSvc = healthuc.New(cfg.source, ping, checker)
	return c, nil
}

// Close releases the store connection and worker pool.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Similar ranks the publications sharing a classification prefix with doc
// by fingerprint cosine similarity. empty_predicate and no_candidates are
// reported in Result.Status, not as errors.
func (c *Client) Similar(ctx context.Context, doc Document, opts ...SearchOption) (res Result, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("similar", res.Status, start, err,
			"publication_number", doc.PublicationNumber, "matches", len(res.Matches))
		if err == nil {
			c.obs.observeMatches(len(res.Matches))
		}
	}()

	d, err := toDomainDocument(doc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	q := similaruc.Query{Document: d}
	for _, o := range opts {
		o(&q)
	}

	out, err := c.similarSvc.Search(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("similar: %w", err)
	}
	return toResult(out), nil
}

// Import stores records and their prefix index entries in Valkey and
// returns the number written.
func (c *Client) Import(ctx context.Context, records []Record) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", "ok", start, err, "records", len(records)) }()

	if c.importer == nil {
		return 0, errImportUnsupported
	}
	patents := make([]candidate.Patent, len(records))
	for i, r := range records {
		patents[i] = toPatent(r)
	}
	if n, err = c.importer.Import(ctx, patents); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return n, nil
}

// expanderAdapter wraps the public Expander to satisfy the internal TagExpander.
type expanderAdapter struct {
	inner Expander
}

func (a *expanderAdapter) Expand(ctx context.Context, doc patent.Document) ([]string, error) {
	codes, err := a.inner.Expand(ctx, fromDomainDocument(doc))
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	return codes, nil
}
