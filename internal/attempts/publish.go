package attempts

import (
	"context"

	"face-auth-backend/internal/shared/telemetry"
)

// Publisher forwards recorded attempts to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, attempt Attempt) error
}

// PublishingRepo records to Repo and then publishes. Publish failures are
// logged and never fail Record.
type PublishingRepo struct {
	Repo
	Publisher Publisher
}

func (r *PublishingRepo) Record(ctx context.Context, attempt Attempt) error {
	if err := r.Repo.Record(ctx, attempt); err != nil {
		return err
	}
	if r.Publisher == nil {
		return nil
	}
	if err := r.Publisher.Publish(ctx, attempt); err != nil {
		telemetry.Warn("attempts.publish_failed", map[string]any{
			"attempt_id": attempt.ID,
			"user_id":    attempt.UserID,
			"error":      err,
		})
	}
	return nil
}
