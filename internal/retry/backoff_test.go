package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  attempts,
	}
}

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	b := fastBackoff(10)
	var retried []int
	b.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	err := b.Do(context.Background(), func(attempt int) error {
		if attempt < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry saw %v, want [1 2]", retried)
	}
}

func TestBackoff_SingleAttemptReturnsRawError(t *testing.T) {
	inner := errors.New("refused")
	err := fastBackoff(1).Do(context.Background(), func(int) error { return inner })
	if err != inner {
		t.Errorf("got %v, want the unwrapped error", err)
	}
}

func TestBackoff_PermanentError(t *testing.T) {
	calls := 0
	err := fastBackoff(10).Do(context.Background(), func(int) error {
		calls++
		return Permanent(fmt.Errorf("handshake failed"))
	})
	if err == nil || err.Error() != "handshake failed" {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error should stop after 1 call, got %d", calls)
	}
}

func TestBackoff_MaxAttempts(t *testing.T) {
	calls := 0
	inner := fmt.Errorf("always fails")
	err := fastBackoff(3).Do(context.Background(), func(int) error {
		calls++
		return inner
	})
	if !errors.Is(err, inner) {
		t.Fatalf("got %v, want wrapped inner error", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_ContextCancel(t *testing.T) {
	b := &Backoff{InitialDelay: time.Hour, MaxAttempts: 0}
	ctx, cancel := context.WithCancel(context.Background())
	b.OnRetry = func(int, error, time.Duration) { cancel() }

	err := b.Do(ctx, func(int) error { return fmt.Errorf("nope") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestJitter_Bounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 200; i++ {
		j := jitter(d)
		if j < 75*time.Millisecond || j > 125*time.Millisecond {
			t.Fatalf("jitter %v outside ±25%% of %v", j, d)
		}
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if !IsPermanent(Permanent(errors.New("x"))) {
		t.Error("IsPermanent should detect wrapped error")
	}
}
