package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to a face-encoding sidecar. The sidecar accepts the raw image
// as the request body and answers {"encodings": [[...], ...]}.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

type encodeResponse struct {
	Encodings [][]float32 `json:"encodings"`
	Error     string      `json:"error,omitempty"`
}

// NewHTTPClient builds a sidecar client. A zero timeout means 15s.
func NewHTTPClient(endpoint string, timeout time.Duration) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("recognizer url is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Encode posts img to the sidecar.
func (c *HTTPClient) Encode(ctx context.Context, img []byte) ([]Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("build encode request: %w", err)
	}
	req.Header.Set("Content-Type", mimetype.Detect(img).String())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read encode response: %w", err)
	}

	var payload encodeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode encode response status=%d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if payload.Error != "" {
			return nil, fmt.Errorf("recognizer status=%d: %s", resp.StatusCode, payload.Error)
		}
		return nil, fmt.Errorf("recognizer status=%d", resp.StatusCode)
	}

	out := make([]Descriptor, 0, len(payload.Encodings))
	for _, enc := range payload.Encodings {
		out = append(out, Descriptor(enc))
	}
	return out, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

var _ Recognizer = (*HTTPClient)(nil)
