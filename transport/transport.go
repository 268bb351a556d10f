package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 16 << 20 // 16 MB
)

var ErrTooLarge = errors.New("response too large")

// A thing capable of exchanging a request document for a response
// document.
type Transport interface {
	Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error)
}

// Returned when an exchange fails, either on the network or with a
// non-2xx status. StatusCode is 0 for network failures.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("posting to %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("posting to %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Posts over HTTP. Doesn't retry.
type HTTP struct {
	Timeout time.Duration
	MaxSize int

	client *http.Client
}

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		Timeout: timeout,
		MaxSize: DefaultMaxSize,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (h *HTTP) Post(
	ctx context.Context,
	url string,
	headers map[string]string,
	body []byte,
) ([]byte, error) {

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if h.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, int64(h.MaxSize)+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}

	if h.MaxSize > 0 && len(data) > h.MaxSize {
		return nil, &Error{URL: url, Err: fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, h.MaxSize)}
	}

	return data, nil
}
