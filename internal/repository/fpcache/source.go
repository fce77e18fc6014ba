package fpcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/db"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Source looks up reference fingerprints.
type Source interface {
	Reference(ctx context.Context, publicationNumber, country string) (fingerprint.Fingerprint, error)
}

// store is the consumer interface for the fingerprint cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource caches reference fingerprints in a key-value store.
// Cache failures are logged and never surface to the caller.
type CachedSource struct {
	inner      Source
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. ttl <= 0 keeps entries without expiry.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Source,
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSource {
	return &CachedSource{
		inner:      inner,
		store:      s,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Reference returns a cached fingerprint or asks the inner source.
func (c *CachedSource) Reference(
	ctx context.Context, publicationNumber, country string,
) (fingerprint.Fingerprint, error) {
	key := c.cacheKey(publicationNumber, country)

	if fp, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return fp, nil
	}

	c.incCache("miss")

	fp, err := c.inner.Reference(ctx, publicationNumber, country)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", publicationNumber, err)
	}

	c.putToCache(ctx, key, fp)
	return fp, nil
}

func (c *CachedSource) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSource) cacheKey(publicationNumber, country string) string {
	return c.keyPrefix + "fp_cache:" + country + ":" + publicationNumber
}

func (c *CachedSource) getFromCache(ctx context.Context, key string) (fingerprint.Fingerprint, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached fingerprint", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	fp, err := fingerprint.FromBytes(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached fingerprint", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return fp, true
}

func (c *CachedSource) putToCache(ctx context.Context, key string, fp fingerprint.Fingerprint) {
	if len(fp) == 0 {
		return
	}
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, fp.Bytes(), c.ttl)
	} else {
		err = c.store.Set(ctx, key, fp.Bytes())
	}
	if err != nil {
		c.logger.Warn("Failed to cache fingerprint", zap.String("key", key), zap.Error(err))
	}
}
