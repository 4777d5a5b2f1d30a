package health

import "context"

// IndexPinger checks corpus index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks provider availability (embedding or model backend).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Backend is a named model backend. It is checked only when it also implements Checker.
type Backend interface {
	Name() string
}
