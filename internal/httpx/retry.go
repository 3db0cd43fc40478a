/**
 * @description
 * Shared retrying HTTP call helper.
 * One backoff policy serves every outbound integration (token endpoint, station
 * pages, geocoding): transport errors and retryable statuses are retried with an
 * exponentially growing delay, everything else is returned to the caller as-is.
 *
 * @dependencies
 * - standard net/http
 */

package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
)

// Policy controls the retry behaviour of Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides whether an HTTP status warrants another attempt.
	// Nil means RetryableStatus.
	Retryable func(status int) bool
}

// RetryableStatus reports whether status is worth retrying: 429 or any 5xx.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do executes the request produced by build, retrying on transport errors and
// retryable statuses. build is invoked once per attempt so request bodies are
// fresh. The response body is fully read and returned; the caller never has to
// close anything.
func Do(ctx context.Context, client *http.Client, policy Policy, build func() (*http.Request, error)) (int, []byte, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = RetryableStatus
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			// Base delay doubles on every extra attempt: base, 2*base, 4*base, ...
			delay := policy.BaseDelay << (attempt - 2)
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build()
		if err != nil {
			return 0, nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			// Timeouts and connection failures are retryable transport errors
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("response read failed: %w", readErr)
			continue
		}

		if retryable(resp.StatusCode) {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			continue
		}

		return resp.StatusCode, body, nil
	}

	return 0, nil, fmt.Errorf("giving up after %d attempts: %w", policy.MaxAttempts, lastErr)
}
