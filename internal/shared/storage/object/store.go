package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a storage key does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// Ref addresses one stored object.
type Ref struct {
	// Key is the backend-relative storage key, accepted by Open.
	Key string
	// Name is the object name inside its namespace.
	Name string
	// Location is what callers can hand to clients: a path or a fetchable URL.
	Location     string
	Size         int64
	LastModified time.Time
}

// ObjectStore defines the contract for saving, enumerating and retrieving
// binary objects grouped by namespace.
type ObjectStore interface {
	// Put writes r as namespace/name, replacing any previous content.
	Put(ctx context.Context, namespace, name, contentType string, r io.Reader) (Ref, error)
	// List enumerates the objects of a namespace. An unknown namespace yields an empty slice.
	List(ctx context.Context, namespace string) ([]Ref, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
