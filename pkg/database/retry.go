package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	connectAttempts = 3
	connectBaseWait = time.Second
	connectJitter   = 0.25
)

// backoff doubles from connectBaseWait per attempt with ±25% jitter.
func backoff(attempt int) time.Duration {
	base := connectBaseWait << max(attempt, 0)
	spread := float64(base) * connectJitter * (2*rand.Float64() - 1) // #nosec G404 -- non-cryptographic jitter
	return base + time.Duration(spread)
}

// connectWithRetry calls dial up to connectAttempts times. Between attempts it
// logs the failure and sleeps, giving up early when ctx ends.
func connectWithRetry[T any](ctx context.Context, backend string, logger *slog.Logger, dial func(context.Context) (T, error)) (T, error) {
	return retry(ctx, "connect to "+backend, logger, nil, dial)
}

// retry runs fn until it succeeds, returns an error retryable rejects, or
// connectAttempts is exhausted. A nil retryable retries every error.
func retry[T any](ctx context.Context, op string, logger *slog.Logger, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := range connectAttempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if retryable != nil && !retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == connectAttempts-1 {
			break
		}

		wait := backoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, op+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", connectAttempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("%s after %d attempts: %w", op, connectAttempts, lastErr)
}
