package notify

import (
	"context"
	"testing"
)

func freqStore(frequency int) *fakeStore {
	return &fakeStore{
		pauses: []PauseWindow{
			{UserID: "user-1", NotifiActive: true, DateStart: "08:00", DateEnd: "23:00", Frequency: frequency},
		},
		devices:    map[string][]string{"user-1": {"token-1"}},
		activities: []Activity{{ID: "act-1", Name: "Caminata de 5 minutos"}},
	}
}

func TestFrequencyThreeFiresAtExpectedHours(t *testing.T) {
	wantHours := map[int]bool{8: true, 11: true, 14: true, 17: true, 20: true, 23: true}

	for hour := 0; hour < 24; hour++ {
		sender := &fakeSender{}
		n := newTestNotifier(freqStore(3), sender)

		result := n.RunTick(context.Background(), at(hour, 0))

		if fired := result.SuggestionsSent > 0; fired != wantHours[hour] {
			t.Fatalf("hour %02d: fired=%v, want %v", hour, fired, wantHours[hour])
		}
	}
}

func TestFrequencyFourScenario(t *testing.T) {
	// frequency=4 within [8,23]: 08:00, 12:00, 16:00, 20:00.
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{8, 0, true},
		{12, 0, true},
		{16, 0, true},
		{20, 0, true},
		{10, 0, false},
		{8, 30, false},
		{23, 0, false}, // (23-8)%4 != 0
	}
	for _, c := range cases {
		sender := &fakeSender{}
		n := newTestNotifier(freqStore(4), sender)

		result := n.RunTick(context.Background(), at(c.hour, c.minute))
		if fired := result.SuggestionsSent > 0; fired != c.want {
			t.Fatalf("%02d:%02d: fired=%v, want %v", c.hour, c.minute, fired, c.want)
		}
	}
}

func TestFrequencySuggestionContent(t *testing.T) {
	store := freqStore(3)
	store.activities = []Activity{
		{ID: "act-1", Name: "Caminata de 5 minutos"},
		{ID: "act-2", Name: "Respiración profunda"},
	}
	sender := &fakeSender{}
	n := newTestNotifier(store, sender)
	n.Pick = func(n int) int { return 1 } // pin the random choice

	n.RunTick(context.Background(), at(11, 0))

	if len(sender.batches) != 1 {
		t.Fatalf("want 1 batch, got %d", len(sender.batches))
	}
	b := sender.batches[0]
	if b.Title != "¡Hora de moverse! 💪" {
		t.Fatalf("unexpected title %q", b.Title)
	}
	if b.Body != "Te sugerimos: Respiración profunda" {
		t.Fatalf("unexpected body %q", b.Body)
	}
	if b.Data["actividadId"] != "act-2" {
		t.Fatalf("unexpected data %v", b.Data)
	}
}

func TestFrequencyUnnamedActivityFallback(t *testing.T) {
	store := freqStore(3)
	store.activities = []Activity{{ID: "act-x"}}
	sender := &fakeSender{}
	n := newTestNotifier(store, sender)

	n.RunTick(context.Background(), at(8, 0))

	if len(sender.batches) != 1 {
		t.Fatalf("want 1 batch, got %d", len(sender.batches))
	}
	if got := sender.batches[0].Body; got != "Te sugerimos: una actividad" {
		t.Fatalf("want fallback body, got %q", got)
	}
}

func TestFrequencyEmptyCatalogueSkips(t *testing.T) {
	store := freqStore(3)
	store.activities = nil
	sender := &fakeSender{}
	n := newTestNotifier(store, sender)

	result := n.RunTick(context.Background(), at(8, 0))
	if result.SuggestionsSent != 0 || len(sender.batches) != 0 {
		t.Fatal("empty catalogue must not dispatch")
	}
}

func TestFrequencyDisabledRecordsSkipped(t *testing.T) {
	store := freqStore(3)
	store.pauses = append(store.pauses,
		PauseWindow{UserID: "user-2", NotifiActive: false, DateStart: "08:00", DateEnd: "23:00", Frequency: 3},
		PauseWindow{UserID: "user-3", NotifiActive: true, DateStart: "08:00", DateEnd: "23:00"}, // no frequency
	)
	store.devices["user-2"] = []string{"token-2"}
	store.devices["user-3"] = []string{"token-3"}
	sender := &fakeSender{}
	n := newTestNotifier(store, sender)

	result := n.RunTick(context.Background(), at(8, 0))
	if result.SuggestionsSent != 1 {
		t.Fatalf("only user-1 should get a suggestion, got %d", result.SuggestionsSent)
	}
}

func TestFrequencyUserWithoutDevicesSkipped(t *testing.T) {
	store := freqStore(3)
	store.devices = map[string][]string{}
	sender := &fakeSender{}
	n := newTestNotifier(store, sender)

	result := n.RunTick(context.Background(), at(8, 0))
	if result.SuggestionsSent != 0 || len(sender.batches) != 0 {
		t.Fatal("user without devices must not dispatch")
	}
}
