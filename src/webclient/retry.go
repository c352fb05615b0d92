package webclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AttemptFunc performs one try and reports the HTTP status it saw.
type AttemptFunc func(ctx context.Context) (status int, body []byte, err error)

// DoWithRetry repeats fn while it fails or answers 429/5xx, doubling
// the delay between tries up to 30s.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn AttemptFunc) (int, []byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	delay := initialDelay
	var (
		status int
		body   []byte
		err    error
	)
	for i := 0; i < attempts; i++ {
		status, body, err = fn(ctx)
		if err == nil && !retryable(status) {
			return status, body, nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return status, body, ctx.Err()
		case <-t.C:
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	if err == nil {
		err = fmt.Errorf("webclient: giving up after %d attempts, last status %d", attempts, status)
	}
	return status, body, err
}

// Get downloads url with DoWithRetry and fails on any non-2xx answer.
func Get(ctx context.Context, client *http.Client, url string, attempts int) ([]byte, error) {
	status, body, err := DoWithRetry(ctx, attempts, 0, func(ctx context.Context) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		return resp.StatusCode, data, err
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("webclient: GET %s: status %d", url, status)
	}
	return body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
