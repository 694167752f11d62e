package faces

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a missing or malformed request field.
	ErrValidation = errors.New("validation failed")

	// ErrCountMismatch indicates an enrollment that does not carry exactly RequiredImages images.
	ErrCountMismatch = errors.New("enrollment image count mismatch")

	// ErrDecode indicates a payload that is not a base64 encoded raster image.
	ErrDecode = errors.New("image decode failed")

	// ErrNoFace indicates the probe image has no detectable face.
	ErrNoFace = errors.New("no face detected")

	// ErrNotRegistered indicates the user has fewer than RequiredImages stored images.
	ErrNotRegistered = errors.New("face not registered")

	// ErrInsufficientMatches indicates fewer than MinMatches stored images matched the probe.
	ErrInsufficientMatches = errors.New("insufficient matches")

	// ErrUpstream indicates a storage or recognizer failure.
	ErrUpstream = errors.New("upstream failure")
)

// OperationError annotates an error with the operation and user it occurred for.
type OperationError struct {
	Operation string
	UserID    string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.UserID != "" {
		return fmt.Sprintf("%s (user_id=%s): %v", e.Operation, e.UserID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func opError(operation string, user UserID, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, UserID: string(user), Err: err}
}

// upstream marks err as an ErrUpstream while keeping the cause in the chain.
func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
