package faces

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a data-URL style payload ("data:image/jpeg;base64,<data>").
// Everything up to the first comma is treated as the header and ignored.
func DecodeImage(payload string) (Image, error) {
	_, encoded, ok := strings.Cut(payload, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data url separator", ErrDecode)
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Image{}, fmt.Errorf("%w: empty image data", ErrDecode)
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// A full decode catches payloads whose header parses but whose pixel data is cut short.
	m, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := m.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Image{}, fmt.Errorf("%w: empty raster", ErrDecode)
	}

	return Image{
		Data:     data,
		MimeType: mimetype.Detect(data).String(),
		Format:   format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
