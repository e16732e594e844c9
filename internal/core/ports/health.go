package ports

//go:generate mockgen -source=health.go -destination=mocks/mock_health.go -package=mocks

import "context"

// HealthChecker is probed by GET /health. A non-nil Ping error marks the
// dependency unhealthy and the service degraded.
type HealthChecker interface {
	Ping(ctx context.Context) error
	// Name keys the dependency in the health response ("postgres", "redis").
	Name() string
}
