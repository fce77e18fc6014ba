package patsim

import (
	"context"
	"sort"

	healthuc "github.com/kailas-cloud/patsim/internal/usecase/health"
)

// Aggregated health values reported in HealthStatus.Status.
const (
	HealthOK       = string(healthuc.Healthy)
	HealthDegraded = string(healthuc.Degraded)
	HealthError    = string(healthuc.Unhealthy)
)

// HealthStatus is the outcome of Client.Health. Source names the record
// source component in Checks ("valkey" or "parquet").
type HealthStatus struct {
	Status string
	Source string
	Checks map[string]string
}

// Ready reports whether searches can be served. A failing expander only
// degrades results, so it does not affect readiness.
func (h HealthStatus) Ready() bool {
	return h.Status != HealthError
}

// Failing lists the components whose check failed, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, v := range h.Checks {
		if v != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HealthChecker is implemented by an Expander that can report its own
// availability. Health includes it as the "expander" check.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Health pings the record source and, when it supports HealthChecker, the
// configured expander.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status: string(report.Status),
		Source: c.sourceName,
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, v := range report.Checks {
		h.Checks[name] = string(v)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
