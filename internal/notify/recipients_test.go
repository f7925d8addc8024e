package notify

import (
	"context"
	"testing"
)

func TestResolveRecipientsIntersectsFilters(t *testing.T) {
	store := &fakeStore{
		members: map[string][]string{"grupo-a": {"user-1", "user-2", "user-3"}},
		pauses: []PauseWindow{
			{UserID: "user-1", NotifiActive: true, DateStart: "08:00", DateEnd: "23:00"},
			{UserID: "user-2", NotifiActive: true, DateStart: "14:00", DateEnd: "18:00"}, // not yet
			{UserID: "user-3", NotifiActive: false, DateStart: "08:00", DateEnd: "23:00"},
		},
		devices: map[string][]string{
			"user-1": {"token-1"},
			"user-2": {"token-2"},
			"user-3": {"token-3"},
		},
	}
	n := newTestNotifier(store, &fakeSender{})

	tokens, err := n.resolveRecipients(context.Background(), "grupo-a", "09:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "token-1" {
		t.Fatalf("want only user-1's token, got %v", tokens)
	}
}

func TestResolveRecipientsDeviceOutsideWindowIrrelevant(t *testing.T) {
	store := &fakeStore{
		members: map[string][]string{"grupo-a": {"user-1", "user-2"}},
		pauses: []PauseWindow{
			{UserID: "user-1", NotifiActive: true, DateStart: "08:00", DateEnd: "23:00"},
			{UserID: "user-2", NotifiActive: true, DateStart: "20:00", DateEnd: "22:00"},
		},
		devices: map[string][]string{"user-1": {"token-1"}},
	}
	n := newTestNotifier(store, &fakeSender{})

	before, err := n.resolveRecipients(context.Background(), "grupo-a", "09:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Registering a device for a user outside their window must not change
	// the resolved set.
	store.devices["user-2"] = []string{"token-2"}
	after, err := n.resolveRecipients(context.Background(), "grupo-a", "09:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("set changed: before %v, after %v", before, after)
	}

	// Inside the window, the device shows up.
	evening, err := n.resolveRecipients(context.Background(), "grupo-a", "21:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(evening) != 2 {
		t.Fatalf("want both tokens at 21:00, got %v", evening)
	}
}

func TestResolveRecipientsEmptyGroup(t *testing.T) {
	store := &fakeStore{members: map[string][]string{}}
	n := newTestNotifier(store, &fakeSender{})

	tokens, err := n.resolveRecipients(context.Background(), "grupo-x", "09:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("want empty set, got %v", tokens)
	}
}

func TestResolveRecipientsDropsEmptyAndDuplicateTokens(t *testing.T) {
	store := &fakeStore{
		members: map[string][]string{"grupo-a": {"user-1", "user-2"}},
		pauses: []PauseWindow{
			{UserID: "user-1", NotifiActive: true, DateStart: "00:00", DateEnd: "23:59"},
			{UserID: "user-2", NotifiActive: true, DateStart: "00:00", DateEnd: "23:59"},
		},
		devices: map[string][]string{
			"user-1": {"token-shared", "", "token-1"},
			"user-2": {"token-shared"},
		},
	}
	n := newTestNotifier(store, &fakeSender{})

	tokens, err := n.resolveRecipients(context.Background(), "grupo-a", "12:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("want 2 unique non-empty tokens, got %v", tokens)
	}
}
