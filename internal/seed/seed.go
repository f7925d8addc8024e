// Package seed inserts a small demo data set for local development:
// one plan with a two-week schedule, a group of users with pause windows
// and suggestion frequencies, their devices, and an activity catalogue.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobreak/notify/internal/notify"
)

// Result tracks what the demo seed inserted.
type Result struct {
	Plans      int
	Users      int
	Devices    int
	Activities int
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("plans=%d users=%d devices=%d activities=%d",
		r.Plans, r.Users, r.Devices, r.Activities)
}

// Demo inserts the demo data set. Idempotent on conflict: existing rows are
// left untouched.
func Demo(ctx context.Context, pool *pgxpool.Pool, loc *time.Location, logger *slog.Logger) (Result, error) {
	var result Result
	now := time.Now().In(loc)

	// Activities
	activities := []notify.Activity{
		{ID: "act-estiramiento", Name: "Estiramiento de espalda"},
		{ID: "act-caminata", Name: "Caminata de 5 minutos"},
		{ID: "act-respiracion", Name: "Respiración profunda"},
		{ID: "act-sentadillas", Name: "Sentadillas suaves"},
	}
	for _, a := range activities {
		tag, err := pool.Exec(ctx, `
			INSERT INTO activities (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`, a.ID, a.Name)
		if err != nil {
			return result, fmt.Errorf("insert activity %s: %w", a.ID, err)
		}
		result.Activities += int(tag.RowsAffected())
	}

	// Users, group membership, pause windows, devices
	users := []struct {
		id        string
		frequency *int
	}{
		{"user-ana", intPtr(3)},
		{"user-carlos", intPtr(4)},
		{"user-lucia", nil},
	}
	for i, u := range users {
		tag, err := pool.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, "grupo-demo", u.id)
		if err != nil {
			return result, fmt.Errorf("insert member %s: %w", u.id, err)
		}
		result.Users += int(tag.RowsAffected())

		_, err = pool.Exec(ctx, `
			INSERT INTO notification_pauses (user_id, notifi_active, date_start, date_end, frequency)
			VALUES ($1, true, '08:00', '23:00', $2)
			ON CONFLICT (user_id) DO NOTHING`, u.id, u.frequency)
		if err != nil {
			return result, fmt.Errorf("insert pause for %s: %w", u.id, err)
		}

		tag, err = pool.Exec(ctx, `
			INSERT INTO devices (user_id, device_token, stale) VALUES ($1, $2, false)
			ON CONFLICT (device_token) DO NOTHING`,
			u.id, fmt.Sprintf("demo-token-%d", i+1))
		if err != nil {
			return result, fmt.Errorf("insert device for %s: %w", u.id, err)
		}
		result.Devices += int(tag.RowsAffected())
	}

	// Plan: morning and afternoon sessions for the next 14 days.
	start := notify.CanonicalDate(now)
	end := notify.CanonicalDate(now.AddDate(0, 0, 13))
	schedule := make(map[string][]notify.ScheduleEntry)
	for d := 0; d < 14; d++ {
		date := notify.CanonicalDate(now.AddDate(0, 0, d))
		schedule[date] = []notify.ScheduleEntry{
			{ID: fmt.Sprintf("inst-demo-%02d", d), Group: "grupo-demo",
				Time: "09:00", Name: "Pausa activa matutina"},
		}
	}
	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return result, fmt.Errorf("encode schedule: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		INSERT INTO notification_plans
			(id, is_active, start_date, end_date, plan_time, plan_time_second, schedule)
		VALUES ($1, true, $2, $3, '09:00', '18:00', $4)
		ON CONFLICT (id) DO NOTHING`,
		"plan-demo", start, end, scheduleJSON)
	if err != nil {
		return result, fmt.Errorf("insert plan: %w", err)
	}
	result.Plans += int(tag.RowsAffected())

	for date, entries := range schedule {
		for _, e := range entries {
			_, err := pool.Exec(ctx, `
				INSERT INTO plan_instances (id, plan_id, session_date, estado)
				VALUES ($1, $2, $3, true)
				ON CONFLICT (id) DO NOTHING`, e.ID, "plan-demo", date)
			if err != nil {
				return result, fmt.Errorf("insert instance %s: %w", e.ID, err)
			}
		}
	}

	logger.Info("Demo data seeded", "summary", result.Summary())
	return result, nil
}

func intPtr(n int) *int { return &n }
