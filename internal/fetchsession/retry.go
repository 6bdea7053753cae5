package fetchsession

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
)

// withRetry runs op up to policy.MaxAttempts times, sleeping between
// attempts per the exponential-backoff-with-jitter schedule, and
// stopping early if op's error is not categorized as transient
// (apperr.CategoryTransientNetwork) — auth failures and fatal errors
// are never worth retrying blindly.
func withRetry(ctx context.Context, policy RetryPolicy, op func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cat, ok := apperr.CategoryOf(err); ok && cat != apperr.CategoryTransientNetwork {
			return "", err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := jitter(policy.delayFor(attempt), policy.JitterFraction)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", apperr.New(apperr.CategoryTransientNetwork, "fetchsession", errRetriesExhausted(lastErr))
}

func errRetriesExhausted(last error) error {
	if last == nil {
		return errors.New("retries exhausted")
	}
	return last
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	delta := float64(d) * fraction
	offset := (rand.Float64()*2 - 1) * delta
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		return 0
	}
	return result
}
