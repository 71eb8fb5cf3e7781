package postgres

import "context"

// HealthCheck reports database liveness for the health endpoint.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a new HealthCheck.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Name() string { return "postgres" }

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}
