package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoffStopsOnSuccess(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), Config{MaxRetries: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("request failed with status 503: unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoffGivesUpAfterBudget(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), Config{MaxRetries: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return errors.New("request failed with status 500: boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestWithBackoffNeverRetriesValidation(t *testing.T) {
	attempts := 0
	verr := &apperrors.ValidationError{Field: "title", Message: "must not be empty"}
	err := WithBackoff(context.Background(), DefaultConfig(), func(context.Context) error {
		attempts++
		return verr
	})
	assert.Equal(t, 1, attempts)
	var got *apperrors.ValidationError
	require.ErrorAs(t, err, &got)
}

func TestWithBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, Config{MaxRetries: 5, BaseDelay: 50 * time.Millisecond}, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("request failed with status 502: bad gateway")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", &apperrors.ValidationError{Field: "x"}, false},
		{"acquisition wrapping timeout", &apperrors.AcquisitionError{SourceType: "video", Err: context.DeadlineExceeded}, true},
		{"acquisition wrapping bad ref", &apperrors.AcquisitionError{SourceType: "video", Err: errors.New("no video ID in \"x\"")}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"server error", errors.New("request failed with status 503: unavailable"), true},
		{"rate limited", errors.New("request failed with status 429: slow down"), true},
		{"client error", errors.New("request failed with status 400: bad request"), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unknown", errors.New("something odd"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestStatusRetryable(t *testing.T) {
	assert.True(t, StatusRetryable(500))
	assert.True(t, StatusRetryable(503))
	assert.True(t, StatusRetryable(429))
	assert.False(t, StatusRetryable(400))
	assert.False(t, StatusRetryable(404))
	assert.False(t, StatusRetryable(200))
}
