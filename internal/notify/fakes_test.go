package notify

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// bogota mirrors the production deployment offset without depending on the
// host's tzdata.
var bogota = time.FixedZone("America/Bogota", -5*60*60)

type fakeStore struct {
	plans      []Plan
	members    map[string][]string
	pauses     []PauseWindow
	devices    map[string][]string
	activities []Activity

	deactivatedPlans []string
	closedInstances  []string
	staleTokens      []string

	plansErr   error
	groupErr   map[string]error
	devicesErr map[string]error
}

func (f *fakeStore) ActivePlans(ctx context.Context, today string) ([]Plan, error) {
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	var out []Plan
	for _, p := range f.plans {
		if p.IsActive && p.StartDate <= today && p.EndDate >= today {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) DeactivatePlan(ctx context.Context, planID string) error {
	for i := range f.plans {
		if f.plans[i].ID == planID {
			f.plans[i].IsActive = false
		}
	}
	f.deactivatedPlans = append(f.deactivatedPlans, planID)
	return nil
}

func (f *fakeStore) DeactivateInstance(ctx context.Context, instanceID string) error {
	f.closedInstances = append(f.closedInstances, instanceID)
	return nil
}

func (f *fakeStore) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	if err := f.groupErr[groupID]; err != nil {
		return nil, err
	}
	return f.members[groupID], nil
}

func (f *fakeStore) AvailableUsers(ctx context.Context, userIDs []string, clock string) ([]string, error) {
	var out []string
	for _, id := range userIDs {
		for _, w := range f.pauses {
			if w.UserID == id && w.Available(clock) {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	if err := f.devicesErr[userID]; err != nil {
		return nil, err
	}
	return f.devices[userID], nil
}

func (f *fakeStore) MarkDeviceStale(ctx context.Context, token string) error {
	f.staleTokens = append(f.staleTokens, token)
	return nil
}

func (f *fakeStore) PauseWindows(ctx context.Context) ([]PauseWindow, error) {
	return f.pauses, nil
}

func (f *fakeStore) Activities(ctx context.Context) ([]Activity, error) {
	return f.activities, nil
}

type fakeSender struct {
	batches []Batch
	result  *SendResult // nil means "all tokens delivered"
	err     error
}

func (f *fakeSender) SendMulti(ctx context.Context, batch Batch) (SendResult, error) {
	if f.err != nil {
		return SendResult{}, f.err
	}
	f.batches = append(f.batches, batch)
	if f.result != nil {
		return *f.result, nil
	}
	return SendResult{Sent: len(batch.Tokens)}, nil
}

func newTestNotifier(store Store, sender Sender) *Notifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, sender, bogota, logger)
}

// at builds a local Bogota timestamp on a fixed test date.
func at(hour, minute int) time.Time {
	return time.Date(2026, time.September, 14, hour, minute, 0, 0, bogota)
}
