package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"course-admin-gateway/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	defaultApplicationName = "course-admin-gateway"
	poolHealthCheckPeriod  = 30 * time.Second
	connectTimeout         = 5 * time.Second
	schemaProbeTimeout     = 2 * time.Second
)

// NewPool opens the shared pgx pool and waits for the first successful ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyPoolConfig(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("dbname", cfg.DBName).
		Str("application_name", poolCfg.ConnConfig.RuntimeParams["application_name"]).
		Int32("max_conns", poolCfg.MaxConns).
		Dur("statement_timeout", cfg.StatementTimeout).
		Msg("postgres pool ready")

	return pool, nil
}

// applyPoolConfig copies sizing and session parameters onto poolCfg.
// Zero values keep pgx defaults.
func applyPoolConfig(poolCfg *pgxpool.Config, cfg config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.HealthCheckPeriod = poolHealthCheckPeriod

	params := poolCfg.ConnConfig.RuntimeParams
	name := cfg.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	params["application_name"] = name
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
}

// SchemaCheck implements ports.HealthChecker. It reports unhealthy when the
// database is unreachable or when golang-migrate left the schema dirty.
type SchemaCheck struct {
	pool Pool
}

// NewSchemaCheck creates the postgres health checker.
func NewSchemaCheck(pool Pool) *SchemaCheck {
	return &SchemaCheck{pool: pool}
}

// Ping reads the migration bookkeeping row.
func (h *SchemaCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, schemaProbeTimeout)
	defer cancel()

	var (
		version int64
		dirty   bool
	)
	err := h.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.New("no migrations applied")
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration %d is dirty", version)
	}
	return nil
}

// Name returns the dependency name.
func (h *SchemaCheck) Name() string {
	return "postgres"
}
