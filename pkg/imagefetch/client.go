package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxBytes caps a downloaded image at 10 MiB.
const DefaultMaxBytes = 10 << 20

// ErrNotImage is returned when the source does not serve an image.
var ErrNotImage = errors.New("source is not an image")

// Image is a downloaded image body.
type Image struct {
	Data        []byte
	ContentType string
}

// Extension returns a file extension for the image content type.
func (i *Image) Extension() string {
	switch i.ContentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, _ := mime.ExtensionsByType(i.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// Client downloads product images from supplier URLs.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	debug      bool
}

// NewClient constructs a Client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   DefaultMaxBytes,
		debug:      os.Getenv("ENV") == "development",
	}
}

// WithMaxBytes overrides the size cap.
func (c *Client) WithMaxBytes(n int64) *Client {
	c.maxBytes = n
	return c
}

// Fetch downloads rawURL. Only http and https sources are accepted.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	if c.debug {
		log.Debug().Str("url", rawURL).Msg("[IMAGEFETCH] Outgoing request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", c.maxBytes)
	}

	if c.debug {
		log.Debug().
			Str("url", rawURL).
			Int("bytes", len(data)).
			Str("content_type", contentType).
			Msg("[IMAGEFETCH] Downloaded")
	}
	return &Image{Data: data, ContentType: contentType}, nil
}
