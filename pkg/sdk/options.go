package patsim

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	// source is "valkey" or "parquet"
	source     string
	addrs      []string
	password   string
	keyPrefix  string
	parquetDir string

	expander Expander

	dimensions    int
	topK          int
	prefixLen     int
	maxPrefixLen  int
	keepSelf      bool
	maxCandidates int
	partitions    int
	workers       int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey reads and imports records through a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = sourceValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces every Valkey key. Default: "patsim:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithParquet reads records from a directory of parquet chunks.
// Import is not available with this source.
func WithParquet(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = sourceParquet
		c.parquetDir = dir
	})
}

// WithExpander adds suggested classification codes to every query before
// the prefix predicate is derived.
func WithExpander(e Expander) Option {
	return optionFunc(func(c *clientConfig) {
		c.expander = e
	})
}

// WithDimensions sets the fingerprint dimension. Default: 64.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithDefaultTopK sets the result size used when a call does not pass TopK.
// Default: 1000.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithPrefixLength sets the default classification prefix length and the
// longest prefix the Valkey index is built for. Default: 2.
func WithPrefixLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefixLen = n
		if n > c.maxPrefixLen {
			c.maxPrefixLen = n
		}
	})
}

// WithKeepSelf keeps the reference publication in its own results.
func WithKeepSelf() Option {
	return optionFunc(func(c *clientConfig) {
		c.keepSelf = true
	})
}

// WithMaxCandidates caps the records fetched per query. Zero means no cap.
func WithMaxCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxCandidates = n
	})
}

// WithWorkers ranks large candidate sets on a pool of the given size,
// split into as many partitions. Zero ranks on the calling goroutine.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
		c.partitions = n
	})
}

// WithLogger enables structured logging for SDK calls.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (call counts, durations and match
// counts) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
