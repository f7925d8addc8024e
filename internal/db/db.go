// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobreak/notify/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the evaluators, CLI,
// and ops API use. Prepared statements eliminate parse overhead on the
// per-minute tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Plans. Dates are stored as canonical YYYY-MM-DDT00:00:00.000
		// strings, which order lexicographically, so the inclusive range
		// check works on text.
		"active_plans": `
			SELECT id, is_active, start_date, end_date, plan_time, plan_time_second, schedule
			FROM notification_plans
			WHERE is_active = true AND start_date <= $1 AND end_date >= $1`,
		"deactivate_plan": `
			UPDATE notification_plans SET is_active = false, updated_at = NOW()
			WHERE id = $1`,
		"deactivate_plan_instance": `
			UPDATE plan_instances SET estado = false, updated_at = NOW()
			WHERE id = $1`,

		// Recipients
		"group_members": "SELECT user_id FROM group_members WHERE group_id = $1",
		"available_pauses": `
			SELECT user_id FROM notification_pauses
			WHERE user_id = ANY($1) AND notifi_active = true
			  AND date_start <= $2 AND date_end >= $2`,
		"user_device_tokens": `
			SELECT device_token FROM devices
			WHERE user_id = $1 AND device_token <> '' AND stale = false`,
		"mark_device_stale": `
			UPDATE devices SET stale = true, updated_at = NOW()
			WHERE device_token = $1`,

		// Frequency suggestions
		"pause_windows": `
			SELECT user_id, notifi_active, date_start, date_end, frequency
			FROM notification_pauses`,
		"activities_all": "SELECT id, name FROM activities",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
