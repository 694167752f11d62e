package faces

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"face-auth-backend/internal/shared/storage/object"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxStoredImageBytes = 20 << 20
)

// Store persists enrollment images per user on top of an ObjectStore.
type Store struct {
	Objects      object.ObjectStore
	FetchTimeout time.Duration
}

// NewStore wraps objects. A zero fetchTimeout means 10s.
func NewStore(objects object.ObjectStore, fetchTimeout time.Duration) *Store {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Store{Objects: objects, FetchTimeout: fetchTimeout}
}

// Put writes one image for user, overwriting an existing image of the same name.
// It returns a path or fetchable URL.
func (s *Store) Put(ctx context.Context, user UserID, name string, img Image) (string, error) {
	ref, err := s.Objects.Put(ctx, string(user), name, img.MimeType, bytes.NewReader(img.Data))
	if err != nil {
		return "", err
	}
	return ref.Location, nil
}

// List enumerates every stored image of user. Unknown users yield an empty slice.
func (s *Store) List(ctx context.Context, user UserID) ([]object.Ref, error) {
	return s.Objects.List(ctx, string(user))
}

// Fetch reads one stored image, bounded by FetchTimeout.
func (s *Store) Fetch(ctx context.Context, ref object.Ref) ([]byte, error) {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rc, err := s.Objects.Open(fetchCtx, ref.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxStoredImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Key, err)
	}
	if len(data) > maxStoredImageBytes {
		return nil, fmt.Errorf("stored image %s exceeds %d bytes", ref.Key, maxStoredImageBytes)
	}
	return data, nil
}

// IsRegistered reports whether user has at least RequiredImages stored images.
// It is recomputed on every call.
func (s *Store) IsRegistered(ctx context.Context, user UserID) (bool, error) {
	refs, err := s.List(ctx, user)
	if err != nil {
		return false, err
	}
	return registered(refs), nil
}

func registered(refs []object.Ref) bool {
	return len(refs) >= RequiredImages
}
