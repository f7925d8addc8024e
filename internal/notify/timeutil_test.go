package notify

import (
	"testing"
	"time"
)

func TestCanonicalDate(t *testing.T) {
	got := CanonicalDate(at(17, 45))
	want := "2026-09-14T00:00:00.000"
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestClock(t *testing.T) {
	if got := Clock(at(8, 5)); got != "08:05" {
		t.Fatalf("want 08:05, got %s", got)
	}
}

func TestFireTime(t *testing.T) {
	cases := []struct {
		slot string
		want string
	}{
		{"09:00", "08:00"},
		{"18:00", "17:00"},
		{"09:30", "08:30"},
		{"01:00", "00:00"},
		// Slots before 01:00 wrap to the previous evening, same day's
		// clock face.
		{"00:30", "23:30"},
		{"00:00", "23:00"},
	}
	for _, c := range cases {
		got, err := FireTime(c.slot, time.Hour)
		if err != nil {
			t.Fatalf("FireTime(%q): %v", c.slot, err)
		}
		if got != c.want {
			t.Fatalf("FireTime(%q): want %s, got %s", c.slot, c.want, got)
		}
	}
}

func TestFireTimeMalformed(t *testing.T) {
	for _, slot := range []string{"", "9am", "25:00", "09:71", "09", "ab:cd"} {
		if _, err := FireTime(slot, time.Hour); err == nil {
			t.Fatalf("FireTime(%q): expected error", slot)
		}
	}
}

func TestPauseWindowAvailable(t *testing.T) {
	w := PauseWindow{NotifiActive: true, DateStart: "08:00", DateEnd: "23:00"}

	if !w.Available("08:00") || !w.Available("23:00") || !w.Available("12:30") {
		t.Fatal("window boundaries should be inclusive")
	}
	if w.Available("07:59") || w.Available("23:01") {
		t.Fatal("times outside the window should not be available")
	}

	w.NotifiActive = false
	if w.Available("12:00") {
		t.Fatal("inactive window should never be available")
	}
}
