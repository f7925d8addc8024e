package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read/write surface the evaluators need from the external
// document store. The production implementation is PGStore; tests inject
// fakes.
type Store interface {
	// ActivePlans returns plans with is_active = true whose date range
	// contains today (canonical date string).
	ActivePlans(ctx context.Context, today string) ([]Plan, error)
	// DeactivatePlan flips a plan's is_active flag off.
	DeactivatePlan(ctx context.Context, planID string) error
	// DeactivateInstance marks a plan-instance record inactive (estado = false).
	DeactivateInstance(ctx context.Context, instanceID string) error

	// GroupMembers returns the user ids belonging to a group.
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
	// AvailableUsers filters userIDs down to those with an active pause
	// window containing the given local clock ("HH:mm").
	AvailableUsers(ctx context.Context, userIDs []string, clock string) ([]string, error)
	// DeviceTokens returns the registered, non-empty device tokens for a user.
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	// MarkDeviceStale flags a token the push transport reported as no
	// longer registered.
	MarkDeviceStale(ctx context.Context, token string) error

	// PauseWindows returns all pause records, including their optional
	// suggestion frequency.
	PauseWindows(ctx context.Context) ([]PauseWindow, error)
	// Activities returns the full suggestion catalogue.
	Activities(ctx context.Context) ([]Activity, error)
}

// PGStore implements Store on a pgx pool. All queries go through prepared
// statements registered in internal/db.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) ActivePlans(ctx context.Context, today string) ([]Plan, error) {
	rows, err := s.pool.Query(ctx, "active_plans", today)
	if err != nil {
		return nil, fmt.Errorf("query active plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		var schedule []byte
		if err := rows.Scan(&p.ID, &p.IsActive, &p.StartDate, &p.EndDate,
			&p.Time, &p.TimeSecond, &schedule); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if len(schedule) > 0 {
			if err := json.Unmarshal(schedule, &p.Schedule); err != nil {
				return nil, fmt.Errorf("decode schedule for plan %s: %w", p.ID, err)
			}
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PGStore) DeactivatePlan(ctx context.Context, planID string) error {
	_, err := s.pool.Exec(ctx, "deactivate_plan", planID)
	return err
}

func (s *PGStore) DeactivateInstance(ctx context.Context, instanceID string) error {
	_, err := s.pool.Exec(ctx, "deactivate_plan_instance", instanceID)
	return err
}

func (s *PGStore) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "group_members", groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PGStore) AvailableUsers(ctx context.Context, userIDs []string, clock string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, "available_pauses", userIDs, clock)
	if err != nil {
		return nil, fmt.Errorf("query available pauses: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PGStore) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "user_device_tokens", userID)
	if err != nil {
		return nil, fmt.Errorf("query device tokens: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PGStore) MarkDeviceStale(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, "mark_device_stale", token)
	return err
}

func (s *PGStore) PauseWindows(ctx context.Context) ([]PauseWindow, error) {
	rows, err := s.pool.Query(ctx, "pause_windows")
	if err != nil {
		return nil, fmt.Errorf("query pause windows: %w", err)
	}
	defer rows.Close()

	var windows []PauseWindow
	for rows.Next() {
		var w PauseWindow
		var freq *int
		if err := rows.Scan(&w.UserID, &w.NotifiActive, &w.DateStart, &w.DateEnd, &freq); err != nil {
			return nil, fmt.Errorf("scan pause window: %w", err)
		}
		if freq != nil {
			w.Frequency = *freq
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *PGStore) Activities(ctx context.Context) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, "activities_all")
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

type stringRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStrings(rows stringRows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
