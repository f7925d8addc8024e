package notify

import (
	"context"
	"fmt"
)

// evaluatePlans walks every active plan whose date range contains today,
// fires reminders for schedule entries whose lead-adjusted slot matches the
// current minute, and deactivates plans whose end date is today. A failure
// on one entry or one plan never aborts the rest of the pass.
func (n *Notifier) evaluatePlans(ctx context.Context, today, clock string, result *TickResult) {
	plans, err := n.store.ActivePlans(ctx, today)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch active plans: %v", err))
		return
	}
	result.PlansScanned = len(plans)

	for _, plan := range plans {
		fired := n.evaluatePlan(ctx, plan, today, clock, result)

		// Expiry is checked after all of today's entries so the final
		// day's reminders still go out before the plan is closed.
		if plan.EndDate != today {
			continue
		}
		if err := n.store.DeactivatePlan(ctx, plan.ID); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("deactivate plan %s: %v", plan.ID, err))
			continue
		}
		result.PlansExpired++
		n.logger.Info("Plan expired and deactivated", "plan_id", plan.ID)

		for _, instanceID := range fired {
			if err := n.store.DeactivateInstance(ctx, instanceID); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("deactivate instance %s: %v", instanceID, err))
				continue
			}
			result.InstancesClosed++
		}
	}
}

// evaluatePlan fires reminders for a single plan's entries on today's date
// and returns the ids of the entries that fired this tick.
func (n *Notifier) evaluatePlan(ctx context.Context, plan Plan, today, clock string, result *TickResult) []string {
	fireFirst, err1 := FireTime(plan.Time, reminderLead)
	fireSecond, err2 := FireTime(plan.TimeSecond, reminderLead)
	if err1 != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("plan %s: %v", plan.ID, err1))
	}
	if err2 != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("plan %s: %v", plan.ID, err2))
	}
	if err1 != nil && err2 != nil {
		return nil
	}

	match := (err1 == nil && clock == fireFirst) || (err2 == nil && clock == fireSecond)
	if !match {
		return nil
	}

	var fired []string
	for _, entry := range plan.Schedule[today] {
		if n.fireEntry(ctx, entry, clock, result) {
			fired = append(fired, entry.ID)
		}
	}
	return fired
}

// fireEntry resolves recipients for one schedule entry and dispatches its
// reminder. Returns true when a dispatch actually happened.
func (n *Notifier) fireEntry(ctx context.Context, entry ScheduleEntry, clock string, result *TickResult) bool {
	tokens, err := n.resolveRecipients(ctx, entry.Group, clock)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("resolve recipients for entry %s: %v", entry.ID, err))
		return false
	}
	if len(tokens) == 0 {
		n.logger.Info("No recipients for session reminder",
			"instance_id", entry.ID, "group", entry.Group)
		return false
	}

	batch := Batch{
		Tokens: tokens,
		Title:  fmt.Sprintf("Próxima actividad: %s 🏋️‍♂️", entry.Name),
		Body:   fmt.Sprintf("⏰ En 1 hora tienes %s (%s)", entry.Name, entry.Time),
		Data:   map[string]string{"planId": entry.ID},
	}
	sent, err := n.dispatch(ctx, batch, result)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("dispatch entry %s: %v", entry.ID, err))
		return false
	}

	result.EntriesFired++
	n.logger.Info("Session reminder dispatched",
		"instance_id", entry.ID, "name", entry.Name,
		"session_time", entry.Time, "sent", sent)
	return true
}

// dispatch sends one batch, accumulates token counts, and flags tokens the
// transport rejected as unregistered.
func (n *Notifier) dispatch(ctx context.Context, batch Batch, result *TickResult) (int, error) {
	if n.sender == nil {
		n.logger.Info("Push delivery disabled, dropping batch",
			"title", batch.Title, "tokens", len(batch.Tokens))
		return 0, nil
	}
	res, err := n.sender.SendMulti(ctx, batch)
	if err != nil {
		return 0, err
	}
	result.TokensReached += res.Sent
	result.TokensFailed += res.Failed

	for _, token := range res.Invalid {
		if err := n.store.MarkDeviceStale(ctx, token); err != nil {
			n.logger.Warn("mark device stale failed", "error", err)
		}
	}
	return res.Sent, nil
}
