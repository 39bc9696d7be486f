// Package retry implements bounded exponential backoff for calls against
// external services. Only transient failures (network errors, timeouts,
// upstream 5xx and 429) are retried; schema validation failures never are.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/distill-app/core/internal/pkg/apperrors"
)

// Config holds retry tuning.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig matches the pipeline default: two retries on top of the
// initial attempt.
func DefaultConfig() Config {
	return Config{MaxRetries: 2, BaseDelay: 500 * time.Millisecond}
}

// WithBackoff runs op until it succeeds, fails permanently, or the retry
// budget is exhausted. The delay doubles per attempt with jitter.
func WithBackoff(ctx context.Context, cfg Config, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.BaseDelay * time.Duration(1<<attempt)
		delay += time.Duration(rand.Int64N(int64(cfg.BaseDelay)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// Retryable reports whether an error is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var venErr *apperrors.ValidationError
	if errors.As(err, &venErr) {
		return false
	}
	var acqErr *apperrors.AcquisitionError
	if errors.As(err, &acqErr) {
		// Invalid references stay invalid; only the wrapped transport
		// error decides.
		return Retryable(acqErr.Err)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// A per-call deadline is a transient fault; the parent context guards
	// the overall budget.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") {
		return true
	}
	if strings.Contains(msg, "status 5") || strings.Contains(msg, "status 429") {
		return true
	}
	if strings.Contains(msg, "status 4") {
		return false
	}
	return false
}

// StatusRetryable reports whether an HTTP status code is transient.
func StatusRetryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}
