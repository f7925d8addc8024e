// Package maintenance runs periodic background tasks as Go tickers.
// These are safety nets around the minute tick: a plan whose end date
// passed while the service was down still gets deactivated, and device
// tokens the push transport rejected get purged.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobreak/notify/internal/notify"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	ExpirySweepInterval time.Duration // Deactivate overdue plans missed at tick time
	StalePurgeInterval  time.Duration // Remove devices flagged stale by the sender
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ExpirySweepInterval: 1 * time.Hour,
		StalePurgeInterval:  6 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, loc *time.Location, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"expiry_sweep", cfg.ExpirySweepInterval,
		"stale_purge", cfg.StalePurgeInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.ExpirySweepInterval > 0 {
		t := time.NewTicker(cfg.ExpirySweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { expireOverduePlans(ctx, pool, loc, logger) })
	}

	if cfg.StalePurgeInterval > 0 {
		t := time.NewTicker(cfg.StalePurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeStaleDevices(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// expireOverduePlans deactivates plans whose end date is strictly in the
// past. The minute tick only flips a plan on its final day; if the service
// was down that day, this sweep catches the leftover.
func expireOverduePlans(ctx context.Context, pool *pgxpool.Pool, loc *time.Location, logger *slog.Logger) {
	today := notify.CanonicalDate(time.Now().In(loc))
	tag, err := pool.Exec(ctx, `
		UPDATE notification_plans
		SET is_active = false, updated_at = NOW()
		WHERE is_active = true AND end_date < $1`, today)
	if err != nil {
		logger.Warn("Expiry sweep: failed to deactivate overdue plans", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Expiry sweep: deactivated overdue plans", "count", tag.RowsAffected())
	}
}

// purgeStaleDevices removes device rows whose token FCM reported as no
// longer registered, once they have been stale for a week.
func purgeStaleDevices(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM devices
		WHERE stale = true
		  AND updated_at < NOW() - INTERVAL '7 days'`)
	if err != nil {
		logger.Warn("Stale purge: failed to delete devices", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Stale purge: deleted devices", "count", tag.RowsAffected())
	}
}
