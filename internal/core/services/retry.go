package services

import (
	"context"
	"time"
)

// Defaults for index write retries. Transient backend failures are
// retried with exponential backoff; after the attempts are exhausted
// the failure is reported to the caller, which records it as an item
// failure rather than aborting the run.
const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 2 * time.Second
	defaultRetryCap      = 10 * time.Second
)

// retryPolicy controls bounded exponential backoff.
type retryPolicy struct {
	attempts int
	base     time.Duration
	cap      time.Duration

	// sleep is replaceable for tests.
	sleep func(context.Context, time.Duration) error
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: defaultRetryAttempts,
		base:     defaultRetryBase,
		cap:      defaultRetryCap,
		sleep:    sleepContext,
	}
}

// do runs fn up to attempts times, doubling the delay between tries.
// Returns the last error when all attempts fail.
func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.base
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
			delay *= 2
			if delay > p.cap {
				delay = p.cap
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
