package notify

import (
	"context"
	"fmt"
	"time"
)

// evaluateFrequencies sends periodic activity suggestions. A user with an
// active pause record and a frequency of F hours gets a suggestion exactly
// on the hour, at hours that are multiples of F counted from the start of
// the daily window (08:00 through 23:00 inclusive).
func (n *Notifier) evaluateFrequencies(ctx context.Context, now time.Time, result *TickResult) {
	hour, minute := now.Hour(), now.Minute()
	if hour < suggestStartHour || hour > suggestEndHour || minute != 0 {
		return
	}

	windows, err := n.store.PauseWindows(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch pause windows: %v", err))
		return
	}

	activities, err := n.store.Activities(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch activities: %v", err))
		return
	}
	if len(activities) == 0 {
		return
	}

	for _, w := range windows {
		if !w.NotifiActive || w.Frequency <= 0 {
			continue
		}
		if (hour-suggestStartHour)%w.Frequency != 0 {
			continue
		}
		n.suggest(ctx, w.UserID, activities, result)
	}
}

// suggest picks one random activity and pushes it to the user's devices.
func (n *Notifier) suggest(ctx context.Context, userID string, activities []Activity, result *TickResult) {
	tokens, err := n.store.DeviceTokens(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("devices for user %s: %v", userID, err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	activity := activities[n.Pick(len(activities))]
	name := activity.Name
	if name == "" {
		name = "una actividad"
	}

	batch := Batch{
		Tokens: tokens,
		Title:  "¡Hora de moverse! 💪",
		Body:   fmt.Sprintf("Te sugerimos: %s", name),
		Data:   map[string]string{"actividadId": activity.ID},
	}
	sent, err := n.dispatch(ctx, batch, result)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("dispatch suggestion to %s: %v", userID, err))
		return
	}

	result.SuggestionsSent++
	n.logger.Info("Activity suggestion dispatched",
		"user_id", userID, "activity", name, "sent", sent)
}
