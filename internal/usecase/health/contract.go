package health

import "context"

// Pinger checks availability of a data source (Valkey, Parquet directory).
type Pinger interface {
	Ping(ctx context.Context) error
}

// ExpanderChecker checks the classification-code expander's provider.
type ExpanderChecker interface {
	HealthCheck(ctx context.Context) error
}
