package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	sentinel := errors.New("down")

	err := r.Do(context.Background(), "always-down", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	sentinel := errors.New("not found")

	calls := 0
	err := r.Do(context.Background(), "lookup", func() error {
		calls++
		return Permanent(sentinel)
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: NewNopLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "slow", func() error { return errors.New("fail") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
