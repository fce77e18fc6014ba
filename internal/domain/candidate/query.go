package candidate

import (
	"github.com/kailas-cloud/patsim/internal/domain/predicate"
)

// Query describes a candidate retrieval: records whose codes match the
// predicate, restricted to one jurisdiction, with a non-empty fingerprint.
type Query struct {
	Predicate predicate.Predicate
	Country   string
	// Limit <= 0 means no limit. Which records survive truncation is
	// source-specific: Valkey keeps the lowest publication numbers, BigQuery
	// the most recently filed, Parquet the first in file order.
	Limit int
}
