package health

import (
	"context"
	"time"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 5 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider failure; queries may still fall back.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus index is unreachable.
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
	index     IndexPinger
	embedding Checker
	backends  []Backend
	timeout   time.Duration
}

// New creates a Service. embedding can be nil.
func New(index IndexPinger, embedding Checker, backends []Backend) *Service {
	return &Service{index: index, embedding: embedding, backends: backends, timeout: DefaultCheckTimeout}
}

// Check runs health checks against all components. Model backends are
// reported as "model:<name>".
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["index"] = s.run(ctx, s.index.Ping)

	if s.embedding != nil {
		checks["embedding"] = s.run(ctx, s.embedding.HealthCheck)
	}

	for _, b := range s.backends {
		if c, ok := b.(Checker); ok {
			checks["model:"+b.Name()] = s.run(ctx, c.HealthCheck)
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["index"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
