package faces

import (
	"fmt"
	"strings"

	"face-auth-backend/internal/shared/util"
)

const (
	// RequiredImages is the exact number of images an enrollment must carry.
	RequiredImages = 9

	// MinMatches is the absolute number of matching stored images needed to verify.
	MinMatches = 5
)

// UserID is a normalized user identifier, also used as the storage namespace.
type UserID string

// NormalizeUserID trims and lower-cases raw. The result must be a non-empty,
// single path segment.
func NormalizeUserID(raw string) (UserID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if _, err := util.SanitizeSegment(id); err != nil {
		return "", fmt.Errorf("%w: userId contains invalid characters", ErrValidation)
	}
	return UserID(id), nil
}

// Image is a decoded upload. Data is passed through unchanged.
type Image struct {
	Data     []byte
	MimeType string
	Format   string
	Width    int
	Height   int
}

// EnrollResult describes a completed enrollment.
type EnrollResult struct {
	UserID    UserID
	ImageURLs []string
}

// VerifyResult describes a verification vote.
type VerifyResult struct {
	UserID    UserID
	Success   bool
	Matches   int
	Processed int
	Skipped   int
}
