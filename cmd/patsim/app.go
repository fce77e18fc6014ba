package main

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/config"
	"github.com/kailas-cloud/patsim/internal/db"
	dbValkey "github.com/kailas-cloud/patsim/internal/db/valkey"
	logpkg "github.com/kailas-cloud/patsim/internal/logger"
	"github.com/kailas-cloud/patsim/internal/metrics"
	"github.com/kailas-cloud/patsim/internal/repository/fpcache"
	patentrepo "github.com/kailas-cloud/patsim/internal/repository/patent"
	bqsource "github.com/kailas-cloud/patsim/internal/source/bigquery"
	pqsource "github.com/kailas-cloud/patsim/internal/source/parquet"
	openaiExp "github.com/kailas-cloud/patsim/internal/transport/openai"
	healthuc "github.com/kailas-cloud/patsim/internal/usecase/health"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
	"github.com/kailas-cloud/patsim/internal/version"
)

// app is the composition root shared by all commands.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	store   db.Store
	pool    *ants.Pool
	similar *similaruc.Service
	health  *healthuc.Service
	closers []func()
}

// bootstrap loads config and builds the logger.
func bootstrap(c *cli.Context) (*app, error) {
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := logpkg.New(env, logpkg.Options{Level: level})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterSearchMetrics()
	return &app{env: env, cfg: cfg, logger: logger}, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// connectStore opens the Valkey store and waits until it answers.
func (a *app) connectStore(ctx context.Context) error {
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    a.cfg.Database.Addrs,
		Password: a.cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create valkey store: %w", err)
	}
	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err = store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return fmt.Errorf("valkey not ready: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	a.logger.Info("Connected to valkey", zap.Strings("addrs", a.cfg.Database.Addrs))
	return nil
}

// buildSearch wires the configured data source, cache, expander and worker
// pool into the similarity service.
func (a *app) buildSearch(ctx context.Context) error {
	cfg := a.cfg

	a.logger.Info("Building similarity service",
		zap.String("version", version.Version),
		zap.String("env", a.env),
		zap.String("source", cfg.Source.Driver),
		zap.Int("dimensions", cfg.Ranking.Dimensions),
		zap.Int("k", cfg.Ranking.K),
		zap.Int("prefix_len", cfg.Ranking.PrefixLen),
		zap.Int("workers", cfg.Ranking.Workers),
	)

	var (
		refs   similaruc.ReferenceSource
		cands  similaruc.CandidateSource
		pinger healthuc.Pinger
	)
	switch cfg.Source.Driver {
	case config.SourceValkey:
		if err := a.connectStore(ctx); err != nil {
			return err
		}
		repo := patentrepo.New(a.store, cfg.Storage.KeyPrefix, cfg.Storage.MaxPrefixLen)
		refs, cands, pinger = repo, repo, a.store
	case config.SourceParquet:
		src := pqsource.New(cfg.Source.ParquetDir)
		refs, cands, pinger = src, src, src
	case config.SourceBigQuery:
		src, err := bqsource.New(ctx, bqsource.Config{
			Project: cfg.Source.BigQuery.Project,
			Table:   cfg.Source.BigQuery.Table,
			Timeout: time.Duration(cfg.Source.BigQuery.TimeoutSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create bigquery source: %w", err)
		}
		a.closers = append(a.closers, func() { _ = src.Close() })
		refs, cands, pinger = src, src, src
	}

	// Remote sources get a Valkey-backed reference cache when one is reachable.
	if cfg.Source.Driver != config.SourceValkey && cfg.Storage.FingerprintCacheTTLSec > 0 && len(cfg.Database.Addrs) > 0 {
		if err := a.connectStore(ctx); err != nil {
			a.logger.Warn("Fingerprint cache disabled", zap.Error(err))
		} else {
			refs = fpcache.New(refs, a.store, cfg.Storage.KeyPrefix,
				time.Duration(cfg.Storage.FingerprintCacheTTLSec)*time.Second,
				metrics.FingerprintCacheTotal, a.logger)
		}
	}

	// Pass a nil interface (not a typed nil pointer) when the expander is off.
	var expander similaruc.TagExpander
	var expanderHealth healthuc.ExpanderChecker
	if cfg.Expander.Enabled {
		e := openaiExp.NewExpander(&openaiExp.Config{
			APIKey:      cfg.Expander.APIKey,
			BaseURL:     cfg.Expander.BaseURL,
			Model:       cfg.Expander.Model,
			MaxCodes:    cfg.Expander.MaxCodes,
			Temperature: cfg.Expander.Temperature,
			Timeout:     time.Duration(cfg.Expander.TimeoutSec) * time.Second,
			Logger:      a.logger,
		})
		expander, expanderHealth = e, e
	}

	pool, err := ants.NewPool(cfg.Ranking.Workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Release)

	a.similar = similaruc.New(refs, cands, expander, pool, similaruc.Options{
		Dimensions:        cfg.Ranking.Dimensions,
		K:                 cfg.Ranking.K,
		PrefixLen:         cfg.Ranking.PrefixLen,
		MinScore:          cfg.Ranking.MinScore,
		ExcludeSelf:       cfg.Ranking.ShouldExcludeSelf(),
		MaxCandidates:     cfg.Search.MaxCandidates,
		Partitions:        cfg.Ranking.Workers,
		ParallelThreshold: cfg.Ranking.ParallelThreshold,
		SourceName:        cfg.Source.Driver,
	}, a.logger)
	a.health = healthuc.New(cfg.Source.Driver, pinger, expanderHealth)
	return nil
}
