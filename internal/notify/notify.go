// Package notify evaluates activity plans and per-user notification
// preferences once per minute and dispatches batched push reminders.
//
// Two evaluators share a tick: the plan evaluator fires session reminders
// one hour before each of a plan's two daily slots and deactivates plans
// whose end date has arrived; the frequency evaluator sends periodic
// activity suggestions on an individually configured hourly cadence.
// Recipient resolution (group → pause window → device tokens) is shared.
package notify

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// Reminders go out this long before a session's configured time.
	reminderLead = time.Hour

	// Daily window for frequency-based suggestions, inclusive hours.
	suggestStartHour = 8
	suggestEndHour   = 23
)

// DefaultTimezone is the deployment wall clock. Plan times and pause
// windows are stored as local HH:mm strings, so every comparison has to
// happen in this zone.
const DefaultTimezone = "America/Bogota"

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Plan is an active notification plan with a validity date range, a per-date
// schedule, and two daily time anchors shared by all schedule entries.
type Plan struct {
	ID         string
	IsActive   bool
	StartDate  string // canonical date string, see CanonicalDate
	EndDate    string
	Time       string // first daily slot, "HH:mm"
	TimeSecond string // second daily slot, "HH:mm"
	Schedule   map[string][]ScheduleEntry
}

// ScheduleEntry is one concrete session instance on a specific date.
type ScheduleEntry struct {
	ID    string `json:"id"`    // plan-instance id
	Group string `json:"group"` // recipient group
	Time  string `json:"time"`  // display time used in the message body
	Name  string `json:"name"`
}

// PauseWindow is a per-user daily eligibility range. Frequency, when > 0,
// additionally enables periodic activity suggestions every that-many hours.
type PauseWindow struct {
	UserID       string
	NotifiActive bool
	DateStart    string // "HH:mm"
	DateEnd      string // "HH:mm"
	Frequency    int    // hours; 0 = not configured
}

// Available reports whether the window admits notifications at the given
// local clock. Both sides are zero-padded 24h HH:mm, so string comparison
// orders correctly.
func (p PauseWindow) Available(clock string) bool {
	return p.NotifiActive && p.DateStart <= clock && p.DateEnd >= clock
}

// Activity is one suggestion candidate for frequency reminders.
type Activity struct {
	ID   string
	Name string
}

// Batch is one outgoing multicast push. Ephemeral: lives only for the
// duration of a single send.
type Batch struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}
