package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
)

// Transport pulls raw bytes for a direct source into a local file. The
// returned size is the number of bytes written.
type Transport interface {
	Download(ctx context.Context, rawURL, destPath string, maxBytes int64) (int64, error)
}

// HTTPTransport downloads direct sources over HTTP with a hard size ceiling
// enforced while streaming, so an oversized body never lands on disk in full.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport builds the default transport. Request deadlines come from
// the caller's context, not the client.
func NewHTTPTransport(userAgent string) *HTTPTransport {
	return &HTTPTransport{
		client:    &http.Client{},
		userAgent: userAgent,
	}
}

func (t *HTTPTransport) Download(ctx context.Context, rawURL, destPath string, maxBytes int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, Wrap(ErrUnsupported, "download", "build request", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, classifyTransportError("download", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return 0, Wrap(ErrUnsupported, "download", fmt.Sprintf("status %d", resp.StatusCode), nil)
	default:
		return 0, Wrap(ErrUnreachable, "download", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return 0, Wrap(ErrTooLarge, "download", fmt.Sprintf("content length %d exceeds limit %d", resp.ContentLength, maxBytes), nil)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	reader := resp.Body
	var limited io.Reader = reader
	if maxBytes > 0 {
		limited = io.LimitReader(reader, maxBytes+1)
	}
	written, err := io.Copy(out, limited)
	if err != nil {
		return written, classifyTransportError("download", err)
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(destPath)
		return written, Wrap(ErrTooLarge, "download", fmt.Sprintf("body exceeds limit %d", maxBytes), nil)
	}
	return written, nil
}

func classifyTransportError(operation string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ErrTimeout, operation, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return Wrap(ErrTimeout, operation, "cancelled", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return Wrap(ErrTimeout, operation, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(ErrTimeout, operation, "network timeout", err)
	}
	return Wrap(ErrUnreachable, operation, "transport failure", err)
}
