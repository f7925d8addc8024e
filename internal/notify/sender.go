package notify

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// SendResult aggregates the per-token outcome of one multicast send.
// Invalid holds tokens the transport reported as no longer registered;
// callers flag those devices stale so maintenance can purge them.
type SendResult struct {
	Sent    int
	Failed  int
	Invalid []string
}

// Sender dispatches one push notification batch to a set of device tokens.
type Sender interface {
	SendMulti(ctx context.Context, batch Batch) (SendResult, error)
}

// FCMSender sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, SendMulti is a no-op.
type FCMSender struct {
	client  *messaging.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFCMSender creates an FCM sender from a service account credentials
// file. Returns (nil, nil) if credentialsFile is empty — push delivery
// disabled, evaluators still run and log.
func NewFCMSender(ctx context.Context, credentialsFile string, sendsPerSecond int, logger *slog.Logger) (*FCMSender, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	if sendsPerSecond < 1 {
		sendsPerSecond = 1
	}
	return &FCMSender{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(sendsPerSecond), sendsPerSecond),
		logger:  logger,
	}, nil
}

// FCM caps multicast messages at 500 tokens per call.
const multicastLimit = 500

// SendMulti sends one multicast message, chunked to the FCM token limit,
// and returns aggregate counts. Tokens FCM rejects as unregistered are
// collected in SendResult.Invalid.
func (s *FCMSender) SendMulti(ctx context.Context, batch Batch) (SendResult, error) {
	if s == nil {
		return SendResult{}, nil
	}
	if len(batch.Tokens) == 0 {
		return SendResult{}, fmt.Errorf("no tokens to send to")
	}

	var result SendResult
	for start := 0; start < len(batch.Tokens); start += multicastLimit {
		chunk := batch.Tokens[start:min(start+multicastLimit, len(batch.Tokens))]

		if err := s.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("rate limiter: %w", err)
		}

		msg := &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: batch.Title,
				Body:  batch.Body,
			},
			Data: batch.Data,
		}
		resp, err := s.client.SendEachForMulticast(ctx, msg)
		if err != nil {
			return result, fmt.Errorf("send multicast: %w", err)
		}

		result.Sent += resp.SuccessCount
		result.Failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Error != nil && messaging.IsUnregistered(r.Error) {
				result.Invalid = append(result.Invalid, chunk[i])
			}
		}
	}

	if result.Failed > 0 {
		s.logger.Warn("FCM send had failures",
			"title", batch.Title, "sent", result.Sent,
			"failed", result.Failed, "invalid", len(result.Invalid))
	}
	return result, nil
}
