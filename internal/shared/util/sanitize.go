package util

import (
	"errors"
	"strings"
)

// ErrInvalidSegment is returned for names that cannot be used as a single path segment.
var ErrInvalidSegment = errors.New("invalid path segment")

// SanitizeSegment trims name and rejects anything that could escape a
// directory or object prefix.
func SanitizeSegment(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || s == "." || strings.Contains(s, "..") {
		return "", ErrInvalidSegment
	}
	if strings.ContainsAny(s, "/\\\x00") {
		return "", ErrInvalidSegment
	}
	return s, nil
}
