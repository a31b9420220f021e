package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config bounds a retried operation. MaxAttempts counts every try, the first
// one included. A zero BaseDelay retries immediately.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// Operation is one attempt. attempt starts at 1.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that retrying cannot fix
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// WithRetry runs operation until it succeeds, returns a permanent error, or
// MaxAttempts is used up. Each attempt gets its own Timeout.
func WithRetry[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var zero T
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		opCtx, cancel := attemptContext(ctx, config.Timeout)
		result, err := operation(opCtx, attempt)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Operation failed")

		if IsPermanent(err) {
			return zero, fmt.Errorf("operation failed permanently on attempt %d: %w", attempt, err)
		}

		if attempt < attempts {
			delay := calculateBackoffDelay(attempt-1, config.BaseDelay, config.MaxDelay)
			log.Debug().
				Dur("delay", delay).
				Int("next_attempt", attempt+1).
				Msg("Retrying after delay")

			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return zero, ctx.Err()
				case <-timer.C:
				}
			}
		}
	}
	return zero, fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

func attemptContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// calculateBackoffDelay doubles baseDelay per attempt with 0.5x-1.5x jitter,
// never exceeding maxDelay (when set).
func calculateBackoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}

	// Cap attempt at 30 to prevent overflow (2^30 is safe for int)
	safeAttempt := min(max(attempt, 0), 30)
	multiplier := 1 << safeAttempt
	delay := time.Duration(multiplier) * baseDelay

	if maxDelay > 0 && (delay > maxDelay || delay < 0) {
		delay = maxDelay
	}

	jitter := 0.5 + rand.Float64()
	delay = time.Duration(float64(delay) * jitter)

	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
