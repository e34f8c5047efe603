package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errConflict = errors.New("conflict")

func fastPolicy(max int) Policy {
	return Policy{
		MaxAttempts: max,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errConflict) },
	}
}

func TestDoSucceedsAfterConflicts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return errConflict
	})
	if !errors.Is(err, ErrExhausted) || !errors.Is(err, errConflict) {
		t.Fatalf("err = %v, want exhausted wrapping conflict", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.BaseDelay = time.Hour

	calls := 0
	err := Do(ctx, p, func(context.Context) error {
		calls++
		cancel()
		return errConflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBackoffWithinBounds(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond, MaxJitter: 5 * time.Millisecond}
	for n := 1; n <= 3; n++ {
		d := p.Backoff(n)
		min := time.Duration(n) * 10 * time.Millisecond
		if d < min || d >= min+5*time.Millisecond {
			t.Fatalf("Backoff(%d) = %v outside [%v, %v)", n, d, min, min+5*time.Millisecond)
		}
	}
}
