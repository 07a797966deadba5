package clients

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock drives backoff waits. Tests substitute one that never sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Backoff is a bounded exponential retry policy.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter spreads each delay by ±Jitter of its value (0..1).
	Jitter float64
	// Rand returns values in [0,1). Nil uses math/rand.
	Rand func() float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
		Jitter:     0.2,
	}
}

// Delay returns the wait before retry n (0-based).
func (b Backoff) Delay(n int) time.Duration {
	d := b.BaseDelay
	for i := 0; i < n && d > 0 && d < time.Hour; i++ {
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			break
		}
		d *= 2
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if b.Jitter > 0 {
		r := rand.Float64
		if b.Rand != nil {
			r = b.Rand
		}
		d += time.Duration(float64(d) * b.Jitter * (2*r() - 1))
	}
	if d < 0 {
		d = 0
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// retryableError marks a failure the loop may try again.
type retryableError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error, after time.Duration) error {
	return &retryableError{err: err, retryAfter: after}
}

// Run calls op until it succeeds, fails with a non-retryable error, or
// MaxRetries retries are spent. Attempts are strictly sequential.
func (b Backoff) Run(ctx context.Context, clock Clock, log logrus.FieldLogger, op func(ctx context.Context, attempt int) error) error {
	if clock == nil {
		clock = SystemClock
	}
	attempts := b.MaxRetries + 1
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := b.Delay(attempt - 1)
			var re *retryableError
			if errors.As(last, &re) && re.retryAfter > wait {
				wait = re.retryAfter
				if b.MaxDelay > 0 && wait > b.MaxDelay {
					wait = b.MaxDelay
				}
			}
			log.WithFields(logrus.Fields{"attempt": attempt + 1, "wait": wait.String()}).
				Warnf("retrying after: %v", last)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(wait):
			}
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		var re *retryableError
		if !errors.As(err, &re) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last = err
	}
	return fmt.Errorf("%w: %d attempts: %w", ErrInferenceUnavailable, attempts, errors.Unwrap(last))
}
