package storage

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 200 * time.Millisecond
)

// retryPolicy wraps backend calls with bounded exponential backoff. The delay
// doubles each attempt starting from baseDelay.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
}

func newRetryPolicy(attempts int, baseDelay time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	return retryPolicy{attempts: attempts, baseDelay: baseDelay}
}

func (p retryPolicy) do(ctx context.Context, logger *zap.SugaredLogger, op string, fn func() error) error {
	var lastErr error
	delay := p.baseDelay

	for attempt := 1; attempt <= p.attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.attempts {
			break
		}
		if logger != nil {
			logger.Warnw("storage call failed, retrying",
				"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

// httpStatusError is what smithy transport errors (and our fakes) expose.
type httpStatusError interface {
	HTTPStatusCode() int
}

// isRetryable classifies a backend error. Client errors in the 4xx range are
// fatal except request-timeout and too-many-requests; everything else
// (5xx, network failures, timeouts) is transient.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrPresignUnsupported) {
		return false
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatusCode()
		switch {
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
			return true
		case code >= 400 && code < 500:
			return false
		case code >= 500:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Unclassified errors are treated as transient rather than dropped.
	return true
}
