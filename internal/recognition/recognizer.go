// Package recognition wraps the external face-recognition capability: turning
// an image into face descriptors and comparing two descriptors.
package recognition

import (
	"context"
	"errors"
	"math"
)

// DefaultTolerance is the maximum descriptor distance accepted as the same person.
const DefaultTolerance = 0.5

var (
	// ErrNoFace is returned by helpers that require at least one detected face.
	ErrNoFace = errors.New("no face detected")

	// ErrDlibUnavailable is returned when the binary was built without the dlib tag.
	ErrDlibUnavailable = errors.New("dlib recognizer not compiled in; rebuild with -tags dlib")
)

// Descriptor is a face feature vector.
type Descriptor []float32

// Recognizer detects faces in an encoded image and returns one descriptor per face,
// in detector order.
type Recognizer interface {
	Encode(ctx context.Context, img []byte) ([]Descriptor, error)
	Close() error
}

// Distance returns the Euclidean distance between two descriptors.
// Descriptors of different length are infinitely far apart.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match reports whether known and candidate are within tolerance of each other.
func Match(known, candidate Descriptor, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Distance(known, candidate) <= tolerance
}

// First encodes img and returns its first descriptor.
func First(ctx context.Context, r Recognizer, img []byte) (Descriptor, error) {
	descs, err := r.Encode(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, ErrNoFace
	}
	return descs[0], nil
}
