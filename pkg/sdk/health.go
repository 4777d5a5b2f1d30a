package ragrec

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/ragrec/internal/usecase/health"
)

// HealthStatus is the aggregated state of the corpus index, the embedder and
// every model backend that can be checked.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // "index", "embedding", "model:<name>": "ok" or "error"
}

// OK reports whether every component answered.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Failing returns the components whose check failed, sorted by name.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health checks all components. Only an unreachable index makes the status
// "error"; a failing embedder or backend leaves it "degraded".
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}
