// Package retry runs an operation under a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds how often an operation is attempted and how long to wait
// between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable reports whether a failed attempt may be tried again. A nil
	// classifier retries every error except context cancellation.
	Retryable func(error) bool
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(context.Context, time.Duration) error
	// OnRetry, when set, observes each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// ExhaustedError is returned once the policy stops retrying.
type ExhaustedError struct {
	Attempts int
	// Permanent is true when the classifier rejected the error before the
	// attempt budget ran out.
	Permanent bool
	Err       error
}

func (e *ExhaustedError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent failure after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, the classifier rejects its error, the
// attempt budget is spent, or ctx is done. Attempts are numbered from 1.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = defaultRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return &ExhaustedError{Attempts: attempt - 1, Permanent: true, Err: errors.Join(lastErr, err)}
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return &ExhaustedError{Attempts: attempt, Permanent: true, Err: err}
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return &ExhaustedError{Attempts: attempt, Permanent: true, Err: errors.Join(lastErr, err)}
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Sleep blocks for delay or until ctx is done.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
