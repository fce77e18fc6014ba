package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the candidate source is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	sourceName string
	source     Pinger
	expander   ExpanderChecker
}

// New creates a Service. source and expander can be nil (not checked).
func New(sourceName string, source Pinger, expander ExpanderChecker) *Service {
	return &Service{sourceName: sourceName, source: source, expander: expander}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			checks[s.sourceName] = CheckError
			status = Unhealthy
		} else {
			checks[s.sourceName] = CheckOK
		}
	}

	if s.expander != nil {
		if err := s.expander.HealthCheck(ctx); err != nil {
			checks["expander"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["expander"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
