package redis

import (
	"context"
	"fmt"
	"time"

	"course-admin-gateway/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	clientName       = "course-admin-gateway"
	defaultOpTimeout = 500 * time.Millisecond
)

// clientOptions maps config onto go-redis options.
func clientOptions(cfg config.RedisConfig) *goredis.Options {
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

// NewClient connects to the Redis instance backing the API key cache and the
// per-key rate limiter.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	opts := clientOptions(cfg)
	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	log.Info().
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Dur("op_timeout", opts.ReadTimeout).
		Msg("redis client ready")

	return client, nil
}

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client  *goredis.Client
	timeout time.Duration
}

// NewHealthCheck creates a Redis health checker bounded by the client's
// read timeout.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	timeout := client.Options().ReadTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &HealthCheck{client: client, timeout: timeout}
}

// Ping round-trips a PING.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
