//go:build dlib

package recognition

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"
)

// Dlib runs the dlib ResNet face model in-process through go-face.
type Dlib struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlib loads the dlib models from modelsDir.
func NewDlib(modelsDir string) (Recognizer, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}
	return &Dlib{rec: rec}, nil
}

// Encode detects faces in img. go-face reads JPEG only, so other formats are
// re-encoded first. The underlying recognizer is not safe for concurrent use.
func (d *Dlib) Encode(ctx context.Context, img []byte) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := asJPEG(img)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	faces, err := d.rec.Recognize(data)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}
	out := make([]Descriptor, 0, len(faces))
	for _, f := range faces {
		desc := make(Descriptor, len(f.Descriptor))
		copy(desc, f.Descriptor[:])
		out = append(out, desc)
	}
	return out, nil
}

// Close frees the dlib models.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
