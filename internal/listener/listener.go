// Package listener provides a Postgres LISTEN/NOTIFY consumer for device
// registrations. It holds a dedicated pgx connection (not from the pool)
// listening on the `device_registered` channel.
//
// When the surrounding application registers a new device token, a Postgres
// trigger fires pg_notify and this consumer sends a welcome push to the new
// device.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecobreak/notify/internal/notify"
)

const (
	channel          = "device_registered"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// DeviceEvent is the JSON payload from pg_notify('device_registered', ...).
type DeviceEvent struct {
	UserID      string `json:"user_id"`
	DeviceToken string `json:"device_token"`
}

// Start opens a dedicated connection and listens on the device_registered
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, sender notify.Sender, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, sender, logger)
		if ctx.Err() != nil {
			logger.Info("Device listener stopped (context cancelled)")
			return
		}

		logger.Error("Device listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, sender notify.Sender, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Device listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event DeviceEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse device event",
				"payload", notification.Payload, "error", err)
			continue
		}
		if event.DeviceToken == "" {
			continue
		}

		// Send asynchronously to avoid blocking the listener.
		go welcome(ctx, sender, event, logger)
	}
}

// welcome sends the onboarding push to a freshly registered device.
func welcome(ctx context.Context, sender notify.Sender, event DeviceEvent, logger *slog.Logger) {
	if sender == nil {
		logger.Info("Welcome notification skipped (push disabled)",
			"user_id", event.UserID)
		return
	}

	batch := notify.Batch{
		Tokens: []string{event.DeviceToken},
		Title:  "¡Bienvenido a EcoBreak! 🌱",
		Body:   "Te avisaremos una hora antes de cada actividad programada.",
		Data:   map[string]string{"userId": event.UserID},
	}
	res, err := sender.SendMulti(ctx, batch)
	if err != nil {
		logger.Warn("Welcome notification failed",
			"user_id", event.UserID, "error", err)
		return
	}
	logger.Info("Welcome notification sent",
		"user_id", event.UserID, "sent", res.Sent, "failed", res.Failed)
}
