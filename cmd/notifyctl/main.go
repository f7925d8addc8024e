// Command notifyctl is the EcoBreak notification ops CLI.
//
// Usage:
//
//	notifyctl tick
//	notifyctl tick --at "2026-09-01 08:00"
//	notifyctl plans list
//	notifyctl plans list --date 2026-09-15
//	notifyctl send-test --user user-ana --body "prueba"
//	notifyctl seed-demo
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ecobreak/notify/internal/config"
	"github.com/ecobreak/notify/internal/db"
	"github.com/ecobreak/notify/internal/notify"
	"github.com/ecobreak/notify/internal/seed"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "EcoBreak notification ops CLI",
	}

	root.AddCommand(tickCmd())
	root.AddCommand(plansCmd())
	root.AddCommand(sendTestCmd())
	root.AddCommand(seedDemoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// tick command
// --------------------------------------------------------------------------

func tickCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one evaluation pass (defaults to the current minute)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}

				now := time.Now()
				if at != "" {
					now, err = time.ParseInLocation("2006-01-02 15:04", at, loc)
					if err != nil {
						return fmt.Errorf("parse --at: %w", err)
					}
				}

				sender, err := buildSender(ctx, cfg)
				if err != nil {
					return err
				}

				notifier := notify.New(notify.NewPGStore(pool.Pool), sender, loc, logger)
				result := notifier.RunTick(ctx, now)
				logger.Info("Tick finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("tick error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", `Wall-clock minute to evaluate, "YYYY-MM-DD HH:mm" in the configured timezone`)
	return cmd
}

// --------------------------------------------------------------------------
// plans command
// --------------------------------------------------------------------------

func plansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect notification plans",
	}
	cmd.AddCommand(plansListCmd())
	return cmd
}

func plansListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans active on a date (default today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}

				day := notify.CanonicalDate(time.Now().In(loc))
				if date != "" {
					parsed, err := time.ParseInLocation("2006-01-02", date, loc)
					if err != nil {
						return fmt.Errorf("parse --date: %w", err)
					}
					day = notify.CanonicalDate(parsed)
				}

				store := notify.NewPGStore(pool.Pool)
				plans, err := store.ActivePlans(ctx, day)
				if err != nil {
					return err
				}

				if len(plans) == 0 {
					fmt.Printf("no active plans on %s\n", day)
					return nil
				}
				for _, p := range plans {
					fmt.Printf("%s  %s → %s  slots %s/%s  sessions today: %d\n",
						p.ID, p.StartDate, p.EndDate, p.Time, p.TimeSecond,
						len(p.Schedule[day]))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", `Date to check, "YYYY-MM-DD" (default today)`)
	return cmd
}

// --------------------------------------------------------------------------
// send-test command
// --------------------------------------------------------------------------

func sendTestCmd() *cobra.Command {
	var userID, title, body string
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test push to all devices of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sender, err := buildSender(ctx, cfg)
				if err != nil {
					return err
				}
				if sender == nil {
					return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required for send-test")
				}

				store := notify.NewPGStore(pool.Pool)
				tokens, err := store.DeviceTokens(ctx, userID)
				if err != nil {
					return err
				}
				if len(tokens) == 0 {
					return fmt.Errorf("user %s has no registered devices", userID)
				}

				res, err := sender.SendMulti(ctx, notify.Batch{
					Tokens: tokens,
					Title:  title,
					Body:   body,
					Data:   map[string]string{"test": "true"},
				})
				if err != nil {
					return err
				}
				logger.Info("Test notification sent",
					"user_id", userID, "sent", res.Sent, "failed", res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Target user id")
	cmd.Flags().StringVar(&title, "title", "EcoBreak", "Notification title")
	cmd.Flags().StringVar(&body, "body", "Notificación de prueba", "Notification body")
	return cmd
}

// --------------------------------------------------------------------------
// seed-demo command
// --------------------------------------------------------------------------

func seedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Insert demo plans, users, devices, and activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				result, err := seed.Demo(ctx, pool.Pool, loc, logger)
				if err != nil {
					return err
				}
				logger.Info("Seed finished", "summary", result.Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// buildSender creates the FCM sender when credentials are configured.
// The returned interface is nil when push delivery is disabled.
func buildSender(ctx context.Context, cfg *config.Config) (notify.Sender, error) {
	fcm, err := notify.NewFCMSender(ctx, cfg.FirebaseCredentialsFile, cfg.PushSendsPerSecond, logger)
	if err != nil {
		return nil, err
	}
	if fcm == nil {
		return nil, nil
	}
	return fcm, nil
}

// runWith handles config loading, DB connection, and context cancellation.
func runWith(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
