package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how provider calls are retried on transient failures.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first call.
	MaxRetries int

	// BaseDelay is the delay before the first retry; subsequent retries
	// back off exponentially from it.
	BaseDelay time.Duration
}

// DefaultRetryPolicy mirrors the policy used when configuration supplies
// nothing better: three retries starting at two seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
}

// Retry executes fn, retrying on transient errors with exponential backoff
// and jitter. Permanent errors (anything not wrapping ErrTransientFailure)
// are returned immediately. Context cancellation aborts the wait between
// attempts.
//
// The backoff for attempt n is BaseDelay * 2^n scaled by a random factor
// in [0.5, 1.0), so synchronized clients spread their retries.
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, op string, fn func(context.Context) error) error {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			logger.WarnContext(ctx, "permanent error, not retrying",
				"operation", op,
				"attempt", attempt+1,
				"error", err)
			return err
		}

		if attempt == policy.MaxRetries {
			break
		}

		backoff := float64(policy.BaseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		logger.InfoContext(ctx, "retrying after transient failure",
			"operation", op,
			"attempt", attempt+1,
			"max_attempts", policy.MaxRetries+1,
			"delay", delay.String(),
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}

	return fmt.Errorf("%w: exceeded %d attempts: %v",
		ErrTransientFailure, policy.MaxRetries+1, err)
}
