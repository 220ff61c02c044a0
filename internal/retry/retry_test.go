package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("connection refused")

func TestRetrySucceedsEventually(t *testing.T) {
	policy := &ExponentialBackoffWithJitter{Min: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2, Jttr: 0.1, MaxAttempts: 5}

	calls := 0
	err := policy.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errTransient) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	policy := &ExponentialBackoffWithJitter{Min: time.Millisecond, Max: time.Millisecond, Multiplier: 2, MaxAttempts: 5}
	permanent := errors.New("bad url")

	calls := 0
	err := policy.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return errors.Is(err, errTransient) })
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("expected a single call returning the permanent error, got %d calls and %v", calls, err)
	}
}

func TestRetryGivesUp(t *testing.T) {
	policy := &ExponentialBackoffWithJitter{Min: time.Millisecond, Max: time.Millisecond, Multiplier: 2, MaxAttempts: 3}

	calls := 0
	err := policy.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	}, func(error) bool { return true })
	if !errors.Is(err, errTransient) || calls != 3 {
		t.Fatalf("expected 3 calls and the last error, got %d calls and %v", calls, err)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	policy := &ExponentialBackoffWithJitter{Min: time.Hour, Max: time.Hour, Multiplier: 2, MaxAttempts: 3}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := policy.Retry(ctx, func(ctx context.Context) error {
		calls++
		return errTransient
	}, func(error) bool { return true })
	if !errors.Is(err, errTransient) || calls != 1 {
		t.Fatalf("expected to stop after the first attempt, got %d calls and %v", calls, err)
	}
}
