package faces

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// webpPixel is a 1x1 lossless WebP.
const webpPixel = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

// noisyJPEG encodes a 64x64 gradient so the scan data outweighs the headers.
func noisyJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x * y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    UserID
		wantErr bool
	}{
		{raw: "alice", want: "alice"},
		{raw: "Alice ", want: "alice"},
		{raw: "  BOB\t", want: "bob"},
		{raw: "user@example.com", want: "user@example.com"},
		{raw: "", wantErr: true},
		{raw: "   ", wantErr: true},
		{raw: "../etc", wantErr: true},
		{raw: "a/b", wantErr: true},
		{raw: "..", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeUserID(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("NormalizeUserID(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
			}
		})
	}
}

func TestValidateCount(t *testing.T) {
	t.Parallel()

	build := func(counts ...int) map[string][]string {
		out := map[string][]string{}
		for i, n := range counts {
			out[string(rune('a'+i))] = make([]string, n)
		}
		return out
	}

	tests := []struct {
		name   string
		images map[string][]string
		total  int
		ok     bool
	}{
		{name: "nine across poses", images: build(3, 3, 3), total: 9, ok: true},
		{name: "nine in one pose", images: build(9), total: 9, ok: true},
		{name: "eight", images: build(3, 3, 2), total: 8},
		{name: "ten", images: build(4, 3, 3), total: 10},
		{name: "empty", images: nil, total: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			total, err := ValidateCount(tt.images)
			if total != tt.total {
				t.Fatalf("expected total %d, got %d", tt.total, total)
			}
			if tt.ok != (err == nil) {
				t.Fatalf("expected ok=%v, got %v", tt.ok, err)
			}
			if err != nil && !errors.Is(err, ErrCountMismatch) {
				t.Fatalf("expected ErrCountMismatch, got %v", err)
			}
		})
	}
}

func TestFlattenNamesImagesByPose(t *testing.T) {
	items, err := flatten(map[string][]string{
		"right": {"r0"},
		"front": {"f0", "f1"},
		"left":  {},
	})
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	var names []string
	for _, item := range items {
		names = append(names, item.name)
	}
	if got := strings.Join(names, ","); got != "front_0,front_1,right_0" {
		t.Fatalf("unexpected names %s", got)
	}
}

func TestFlattenRejectsUnsafePose(t *testing.T) {
	if _, err := flatten(map[string][]string{"../x": {"p"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	payload := dataURL(t, red)
	img, err := DecodeImage(payload)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Format != "png" || img.MimeType != "image/png" || img.Width != 4 || img.Height != 4 {
		t.Fatalf("unexpected image %+v", img)
	}

	// The header is ignored; bytes pass through untouched.
	raw := pngBytes(t, red)
	again, err := DecodeImage("whatever," + strings.TrimPrefix(payload, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("DecodeImage without data url header: %v", err)
	}
	if string(again.Data) != string(raw) {
		t.Fatalf("decoded bytes differ from source")
	}
}

func TestDecodeImageFormats(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			src.Set(x, y, red)
		}
	}
	encode := func(fn func(*bytes.Buffer) error) string {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	tests := []struct {
		format  string
		payload string
		size    int
	}{
		{format: "png", payload: base64.StdEncoding.EncodeToString(pngBytes(t, red)), size: 4},
		{format: "jpeg", payload: encode(func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) }), size: 4},
		{format: "gif", payload: encode(func(b *bytes.Buffer) error { return gif.Encode(b, src, nil) }), size: 4},
		{format: "bmp", payload: encode(func(b *bytes.Buffer) error { return bmp.Encode(b, src) }), size: 4},
		{format: "tiff", payload: encode(func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }), size: 4},
		{format: "webp", payload: webpPixel, size: 1},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			img, err := DecodeImage("data:image/" + tt.format + ";base64," + tt.payload)
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			if img.Format != tt.format || img.Width != tt.size || img.Height != tt.size {
				t.Fatalf("unexpected image format=%q %dx%d", img.Format, img.Width, img.Height)
			}
		})
	}
}

func TestDecodeImageFailures(t *testing.T) {
	t.Parallel()

	whole := noisyJPEG(t)
	if _, err := DecodeImage("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(whole)); err != nil {
		t.Fatalf("complete jpeg should decode: %v", err)
	}
	truncated := base64.StdEncoding.EncodeToString(whole[:len(whole)*3/4])

	tests := map[string]string{
		"truncated jpeg": "data:image/jpeg;base64," + truncated,
		"no separator":   "iVBORw0KGgo",
		"empty data":     "data:image/png;base64,",
		"bad base64":     "data:image/png;base64,%%%",
		"not an image":   "data:image/png;base64,aGVsbG8gd29ybGQ=",
		"truncated png":  "data:image/png;base64,iVBORw0KGgo=",
	}

	for name, payload := range tests {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := DecodeImage(payload); !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}
