package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string       { return fmt.Sprintf("http status %d", e.code) }
func (e *statusError) HTTPStatusCode() int { return e.code }

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := newRetryPolicy(3, time.Millisecond)

	calls := 0
	err := p.do(context.Background(), testLogger(), "op", func() error {
		calls++
		if calls < 3 {
			return &statusError{code: 500}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryClientErrorFailsImmediately(t *testing.T) {
	p := newRetryPolicy(3, time.Second)

	calls := 0
	start := time.Now()
	err := p.do(context.Background(), testLogger(), "op", func() error {
		calls++
		return &statusError{code: 400}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")
	assert.Less(t, time.Since(start), 100*time.Millisecond, "no backoff delay expected")
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	p := newRetryPolicy(3, time.Millisecond)

	calls := 0
	err := p.do(context.Background(), testLogger(), "op", func() error {
		calls++
		return &statusError{code: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	var statusErr *statusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.code)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	p := newRetryPolicy(5, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.do(ctx, testLogger(), "op", func() error {
		calls++
		return &statusError{code: 500}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"server error", &statusError{code: 500}, true},
		{"bad gateway", &statusError{code: 502}, true},
		{"bad request", &statusError{code: 400}, false},
		{"unauthorized", &statusError{code: 401}, false},
		{"forbidden", &statusError{code: 403}, false},
		{"request timeout", &statusError{code: 408}, true},
		{"too many requests", &statusError{code: 429}, true},
		{"wrapped status", fmt.Errorf("call failed: %w", &statusError{code: 404}), false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"presign unsupported", ErrPresignUnsupported, false},
		{"plain error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
		})
	}
}
