// Package retry re-attempts connection establishment with exponential
// backoff.  It is used only before the session starts: once the chat is
// running a transport failure ends it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// PermanentError stops the retry loop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Backoff retries an operation with growing delays between attempts.
type Backoff struct {
	InitialDelay time.Duration // default 500ms
	MaxDelay     time.Duration // default 10s
	Multiplier   float64       // default 2
	// MaxAttempts counts the first try.  1 disables retrying, 0 retries
	// until the context ends.
	MaxAttempts int
	Jitter      bool // ±25%

	// OnRetry, if set, is told about every failed attempt that will be
	// followed by another one.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultBackoff suits dialling a host that may not be listening yet.
func DefaultBackoff(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		MaxAttempts:  attempts,
		Jitter:       true,
	}
}

// Do calls fn (attempt is 1-based) until it returns nil, returns a
// [Permanent] error, the attempt budget runs out, or ctx ends.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	mult := b.Multiplier
	if mult <= 1 {
		mult = 2
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			if b.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := delay
		if b.Jitter {
			wait = jitter(delay)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}

		delay = min(time.Duration(float64(delay)*mult), maxDelay)
	}
}

func jitter(d time.Duration) time.Duration {
	quarter := float64(d) / 4
	out := time.Duration(float64(d) + rand.Float64()*2*quarter - quarter)
	return max(out, time.Millisecond)
}
