package attempts

import (
	"context"
	"errors"
)

// MaxListLimit caps ListByUser page sizes.
const MaxListLimit = 50

// ErrInvalidInput indicates a malformed attempt or query.
var ErrInvalidInput = errors.New("invalid input")

// Repo persists attempts.
type Repo interface {
	Record(ctx context.Context, attempt Attempt) error
	// ListByUser returns the newest attempts first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
