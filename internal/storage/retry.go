package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy for transient contention on bulk writes: a bounded number
// of attempts with a fixed interval. Any other error aborts immediately.
const (
	retryInterval = 250 * time.Millisecond
	retryAttempts = 3
)

// WithRetry runs op, retrying ErrContention up to retryAttempts times with
// a fixed backoff. Non-contention errors are returned unchanged.
func WithRetry(ctx context.Context, op func() error) error {
	return WithRetryNotify(ctx, op, nil)
}

// WithRetryNotify is WithRetry with a notify callback invoked once per
// retryable failure, before the backoff wait. Used to count store errors.
func WithRetryNotify(ctx context.Context, op func() error, notify backoff.Notify) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), retryAttempts),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrContention) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, b, notify)
}
