package queue

import (
	"context"
	"time"

	"face-auth-backend/internal/attempts"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// AttemptPublisher turns recorded attempts into queue messages.
type AttemptPublisher struct {
	Client Client
}

// Publish sends attempt as a Message.
func (p AttemptPublisher) Publish(ctx context.Context, attempt attempts.Attempt) error {
	return p.Client.Send(ctx, Message{
		AttemptID:  attempt.ID,
		UserID:     attempt.UserID,
		Kind:       string(attempt.Kind),
		Success:    attempt.Success,
		Matches:    attempt.Matches,
		Processed:  attempt.Processed,
		OccurredAt: attempt.CreatedAt.UTC().Format(time.RFC3339Nano),
		Version:    MessageVersion,
	})
}

var _ attempts.Publisher = AttemptPublisher{}
