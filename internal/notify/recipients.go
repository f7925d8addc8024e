package notify

import (
	"context"
	"fmt"
)

// resolveRecipients computes the device-token set eligible to receive a
// group-targeted notification right now. Each step is a hard filter:
// group membership, then an active pause window containing the current
// clock, then registered tokens. Empty at any stage means nothing to send.
func (n *Notifier) resolveRecipients(ctx context.Context, groupID, clock string) ([]string, error) {
	members, err := n.store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group members of %s: %w", groupID, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	available, err := n.store.AvailableUsers(ctx, members, clock)
	if err != nil {
		return nil, fmt.Errorf("available users of %s: %w", groupID, err)
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, userID := range available {
		userTokens, err := n.store.DeviceTokens(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("devices for user %s: %w", userID, err)
		}
		for _, t := range userTokens {
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}
