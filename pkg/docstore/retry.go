package docstore

import (
	"context"
	"time"
)

// retryWithBackoff calls f until it succeeds or ctx ends, doubling the wait
// between attempts up to maxWait.
func retryWithBackoff(ctx context.Context, f func() error, minWait, maxWait time.Duration) error {
	wait := minWait
	for {
		err := f()
		if err == nil {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}
