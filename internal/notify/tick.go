package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// tickInterval is the evaluation cadence. Both evaluators match against
// minute-granularity HH:mm strings, so exactly one tick per minute keeps
// firing at-most-once per match.
const tickInterval = time.Minute

// TickResult summarizes one evaluation pass.
type TickResult struct {
	At              time.Time     `json:"at"`
	PlansScanned    int           `json:"plans_scanned"`
	EntriesFired    int           `json:"entries_fired"`
	PlansExpired    int           `json:"plans_expired"`
	InstancesClosed int           `json:"instances_closed"`
	SuggestionsSent int           `json:"suggestions_sent"`
	TokensReached   int           `json:"tokens_reached"`
	TokensFailed    int           `json:"tokens_failed"`
	Duration        time.Duration `json:"duration_ns"`
	Errors          []string      `json:"errors,omitempty"`
}

// Summary returns a human-readable one-liner.
func (r *TickResult) Summary() string {
	return fmt.Sprintf(
		"at=%s plans=%d fired=%d expired=%d closed=%d suggestions=%d reached=%d failed=%d errs=%d dur=%s",
		r.At.Format("2006-01-02 15:04"), r.PlansScanned, r.EntriesFired,
		r.PlansExpired, r.InstancesClosed, r.SuggestionsSent,
		r.TokensReached, r.TokensFailed, len(r.Errors),
		r.Duration.Round(time.Millisecond))
}

// quiet reports whether the tick did nothing worth logging at info level.
func (r *TickResult) quiet() bool {
	return r.EntriesFired == 0 && r.PlansExpired == 0 &&
		r.SuggestionsSent == 0 && len(r.Errors) == 0
}

// Notifier runs both evaluators against an injected store and sender.
// All time computations happen in loc; callers may pass RunTick any zone
// and it is converted first.
type Notifier struct {
	store  Store
	sender Sender
	loc    *time.Location
	logger *slog.Logger

	// Pick selects a random index in [0, n). Replaceable to pin the
	// activity chosen by the frequency evaluator.
	Pick func(n int) int

	running atomic.Bool

	mu      sync.Mutex
	last    TickResult
	hasLast bool
}

// New creates a Notifier. sender may be a nil *FCMSender (delivery
// disabled); store must be non-nil.
func New(store Store, sender Sender, loc *time.Location, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		sender: sender,
		loc:    loc,
		logger: logger,
		Pick:   rand.Intn,
	}
}

// RunTick evaluates plans and frequencies for the given wall-clock instant.
// Failures inside either evaluator are isolated per entry/user and
// collected into the result; only the result is returned, never an error —
// a tick is fire-and-forget.
func (n *Notifier) RunTick(ctx context.Context, now time.Time) TickResult {
	start := time.Now()
	local := now.In(n.loc)

	result := TickResult{At: local}
	today := CanonicalDate(local)
	clock := Clock(local)

	n.evaluatePlans(ctx, today, clock, &result)
	n.evaluateFrequencies(ctx, local, &result)

	result.Duration = time.Since(start)

	n.mu.Lock()
	n.last = result
	n.hasLast = true
	n.mu.Unlock()
	return result
}

// LastResult returns the most recent tick result, if any tick has run.
func (n *Notifier) LastResult() (TickResult, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last, n.hasLast
}

// TryRunNow runs a tick immediately unless one is already in flight.
// Used by the minute driver and the manual ops trigger alike, so overlap
// protection is shared.
func (n *Notifier) TryRunNow(ctx context.Context) (TickResult, bool) {
	if !n.running.CompareAndSwap(false, true) {
		return TickResult{}, false
	}
	defer n.running.Store(false)
	return n.RunTick(ctx, time.Now()), true
}

// Start drives RunTick once per minute, aligned to minute boundaries.
// If a tick is still running when the next boundary arrives, the new tick
// is skipped and logged, preserving at-most-once-per-minute semantics.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info("Notification tick driver started",
		"interval", tickInterval, "timezone", n.loc.String())

	// Align the first tick to the next minute boundary.
	first := time.Until(time.Now().Truncate(time.Minute).Add(time.Minute))
	select {
	case <-time.After(first):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	n.tick(ctx)
	for {
		select {
		case <-ticker.C:
			n.tick(ctx)
		case <-ctx.Done():
			n.logger.Info("Notification tick driver stopped")
			return
		}
	}
}

func (n *Notifier) tick(ctx context.Context) {
	result, ran := n.TryRunNow(ctx)
	if !ran {
		n.logger.Warn("Previous tick still running, skipping this minute")
		return
	}
	for _, e := range result.Errors {
		n.logger.Warn("tick error", "error", e)
	}
	if !result.quiet() {
		n.logger.Info("Tick complete", "summary", result.Summary())
	}
}
