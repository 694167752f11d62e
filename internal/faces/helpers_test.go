package faces

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"face-auth-backend/internal/attempts"
	"face-auth-backend/internal/recognition"
	"face-auth-backend/internal/shared/storage/object"
	"face-auth-backend/internal/shared/storage/object/local"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// colorRecognizer treats the top-left pixel colour as the face descriptor.
// Pure black means no face.
type colorRecognizer struct {
	err error
}

func (r colorRecognizer) Encode(_ context.Context, img []byte) ([]recognition.Descriptor, error) {
	if r.err != nil {
		return nil, r.err
	}
	m, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, err
	}
	cr, cg, cb, _ := m.At(0, 0).RGBA()
	if cr == 0 && cg == 0 && cb == 0 {
		return nil, nil
	}
	return []recognition.Descriptor{{float32(cr) / 0xffff, float32(cg) / 0xffff, float32(cb) / 0xffff}}, nil
}

func (colorRecognizer) Close() error { return nil }

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func dataURL(t *testing.T, c color.Color) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, c))
}

// enrollment builds a three-pose enrollment whose images use colors in order.
func enrollment(t *testing.T, colors ...color.Color) map[string][]string {
	t.Helper()
	poses := []string{"front", "left", "right"}
	out := map[string][]string{}
	for i, c := range colors {
		pose := poses[i%len(poses)]
		out[pose] = append(out[pose], dataURL(t, c))
	}
	return out
}

func repeat(c color.Color, n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}

type testEnv struct {
	svc      *Service
	dir      string
	attempts *attempts.MemoryRepo
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	repo := attempts.NewMemoryRepo()
	svc := &Service{
		Store:       NewStore(local.New(dir), 0),
		Recognizer:  colorRecognizer{},
		Attempts:    repo,
		Tolerance:   recognition.DefaultTolerance,
		Concurrency: 3,
	}
	return testEnv{svc: svc, dir: dir, attempts: repo}
}

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Put(context.Context, string, string, string, io.Reader) (object.Ref, error) {
	return object.Ref{}, s.err
}

func (s failingStore) List(context.Context, string) ([]object.Ref, error) {
	return nil, s.err
}

func (s failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, s.err
}

var errStorageDown = errors.New("storage down")
