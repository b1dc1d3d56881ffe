package adapters

import (
	"context"
	"errors"
)

// Pinger is anything that can report backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker aggregates the backends the API depends on. Nil entries are skipped.
type HealthChecker struct {
	checks []Pinger
}

// NewHealthChecker creates a checker over the given backends.
func NewHealthChecker(checks ...Pinger) *HealthChecker {
	kept := make([]Pinger, 0, len(checks))
	for _, c := range checks {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &HealthChecker{checks: kept}
}

// Ping implements http.HealthChecker. All backends are checked; failures are joined.
func (h *HealthChecker) Ping(ctx context.Context) error {
	var errs []error
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
