package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// CanonicalDate formats t's calendar date in the storage form
// "YYYY-MM-DDT00:00:00.000". Plan date ranges and schedule keys are stored
// as these exact strings, so lookups must match byte for byte.
func CanonicalDate(t time.Time) string {
	return t.Format("2006-01-02") + "T00:00:00.000"
}

// Clock formats t as a zero-padded 24h "HH:mm" string.
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// parseClock parses a zero-padded "HH:mm" string into minutes since
// midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock %q: bad minute", s)
	}
	return h*60 + m, nil
}

// FireTime returns the "HH:mm" at which a reminder for the given configured
// slot time must go out, i.e. the slot minus lead. The subtraction wraps
// modulo 24h: a slot at 00:30 with a 1h lead fires at 23:30 the same day,
// matching how the legacy comparison (date-rolling subtraction followed by
// an HH:mm-only equality check) behaved.
func FireTime(slot string, lead time.Duration) (string, error) {
	m, err := parseClock(slot)
	if err != nil {
		return "", err
	}
	m -= int(lead.Minutes())
	m = ((m % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60), nil
}
