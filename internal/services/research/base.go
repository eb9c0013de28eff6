package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "Foresight/pkg/http"
)

// HTTPServiceBase is the shared client for the research and critic
// services: one base URL, JSON in and out, bounded retries.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
	backoff  time.Duration
}

func NewHTTPServiceBase(baseURL string, timeout time.Duration, attempts int) *HTTPServiceBase {
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPServiceBase{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
		backoff:  200 * time.Millisecond,
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("research http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transport errors, 429 and 5xx responses with a
// linear backoff. Other 4xx responses fail immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !retryable(err) || i == b.attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
