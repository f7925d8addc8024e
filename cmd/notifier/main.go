// Command notifier is the EcoBreak push notification service.
//
// It evaluates activity plans and per-user notification preferences once per
// minute, dispatches FCM reminders, listens for device registrations, and
// exposes a small ops HTTP surface.
//
// Usage:
//
//	ecobreak-notifier
//	API_PORT=8080 ecobreak-notifier
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecobreak/notify/internal/api"
	"github.com/ecobreak/notify/internal/config"
	"github.com/ecobreak/notify/internal/db"
	"github.com/ecobreak/notify/internal/listener"
	"github.com/ecobreak/notify/internal/maintenance"
	"github.com/ecobreak/notify/internal/notify"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// FCM sender (nil when no credentials file is configured)
	fcm, err := notify.NewFCMSender(ctx, cfg.FirebaseCredentialsFile, cfg.PushSendsPerSecond, logger)
	if err != nil {
		logger.Error("Failed to initialize FCM", "error", err)
		os.Exit(1)
	}
	var sender notify.Sender
	if fcm != nil {
		sender = fcm
		logger.Info("FCM sender initialized")
	} else {
		logger.Info("Push delivery disabled (no FIREBASE_CREDENTIALS_FILE)")
	}

	// Minute tick driver
	notifier := notify.New(notify.NewPGStore(pool.Pool), sender, loc, logger)
	go notifier.Start(ctx)

	// LISTEN/NOTIFY consumer for device registrations
	go listener.Start(ctx, cfg.DatabaseURL, sender, logger)

	// Maintenance tickers (expiry catch-up, stale token purge)
	go maintenance.Start(ctx, pool.Pool, loc, maintenance.DefaultConfig(), logger)

	// Ops HTTP server
	router := api.NewRouter(pool, notifier, cfg)
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting EcoBreak notifier",
			"addr", addr,
			"environment", cfg.Environment,
			"timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
